package api

import (
	"fmt"      // Cache key formatting
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"round_dao/internal/domain" // Importing domain models
	"round_dao/internal/engine" // Governance engine
	"round_dao/internal/ledger" // Token formatting
	"round_dao/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// PublicUser is the leaderboard view of a user
type PublicUser struct {
	ID       uint32         `json:"id"`                  // User id
	UserName *string        `json:"user_name,omitempty"` // Display name
	Karma    int32          `json:"karma"`               // Reputation
	Badges   []domain.Badge `json:"badges"`              // Achievement markers
}

// SetUserNameRequest is the body of PUT /me/username
type SetUserNameRequest struct {
	UserName string `json:"user_name" binding:"required"` // New display name
}

// SetDepositAddressRequest is the body of PUT /me/deposit-address
type SetDepositAddressRequest struct {
	Address string `json:"address" binding:"required"` // Hex account identifier
}

// StageIdentityRequest is the body of POST /me/identity/stage
type StageIdentityRequest struct {
	NewIdentity string             `json:"new_identity" binding:"required"` // Identity to move to
	LoginMethod domain.LoginMethod `json:"login_method"`                    // Provider of the new identity
}

// ConfirmIdentityRequest is the body of POST /me/identity/confirm
type ConfirmIdentityRequest struct {
	OldIdentity string `json:"old_identity" binding:"required"` // Identity the account is moving from
}

// TopUsersHandler returns the karma leaderboard
func TopUsersHandler(eng *engine.Engine, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		n := 10 // Default leaderboard size
		if q := c.Query("n"); q != "" {
			// If valid, set leaderboard size
			if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 100 {
				n = v
			}
		}
		cacheKey := fmt.Sprintf("%sn=%d", topUsersCachePrefix, n)
		var cached []PublicUser
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"users": cached, "cached": true})
			return
		}
		top := eng.TopUsersByKarma(n)
		resp := make([]PublicUser, len(top))
		// Map users to response format
		for i, u := range top {
			resp[i] = PublicUser{ID: u.ID, UserName: u.UserName, Karma: u.Karma, Badges: u.Badges}
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl) // Cache the leaderboard
		c.JSON(http.StatusOK, gin.H{"users": resp, "cached": false})
	}
}

// MeHandler returns the caller's own record
func MeHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		u, err := eng.User(identity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":         u,                                         // Full record
			"withdrawable": ledger.Tokens(u.WithdrawableE8s).String(), // Human-readable balance
			"is_admin":     eng.IsAdmin(identity),                     // Admin flag for the frontend
		})
	}
}

// SetUserNameHandler sets the caller's display name
func SetUserNameHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req SetUserNameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := eng.SetUserName(identity, req.UserName); err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb) // Names appear on the leaderboard
		c.JSON(http.StatusOK, gin.H{"message": "Username updated"})
	}
}

// SetDepositAddressHandler sets where the caller's rewards are paid
func SetDepositAddressHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req SetDepositAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := eng.SetDepositAddress(identity, req.Address); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deposit address updated"})
	}
}

// StageIdentityHandler records the identity the caller's account should move to
func StageIdentityHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req StageIdentityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		method := req.LoginMethod
		if method == "" {
			method = domain.LoginInternetIdentity // Migrations usually move to a self-custodied identity
		}
		if err := eng.StageIdentityChange(identity, req.NewIdentity, method); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Identity change staged"})
	}
}

// ConfirmIdentityHandler completes a migration; the caller is the new identity
func ConfirmIdentityHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req ConfirmIdentityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := eng.ConfirmIdentityChange(identity, req.OldIdentity); err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb)
		c.JSON(http.StatusOK, gin.H{"message": "Identity changed"})
	}
}
