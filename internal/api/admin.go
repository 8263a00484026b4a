package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"round_dao/internal/domain" // Importing domain models
	"round_dao/internal/engine" // Governance engine
	"round_dao/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// CreateUserRequest is the body of POST /admin/users
type CreateUserRequest struct {
	Identity string `json:"identity" binding:"required"` // Identity to register
}

// SettingsRequest is the body of PUT /admin/settings
type SettingsRequest struct {
	RoundDurationSeconds uint64 `json:"round_duration_seconds" binding:"required,gte=60"`   // Round length
	RewardPerRoundE8s    uint64 `json:"reward_per_round_e8s"`                               // Winner reward
	MaxProposalsPerRound uint32 `json:"max_proposals_per_round" binding:"required,gt=0"`    // Cap on live proposals
	MaxProposalsPerUser  uint32 `json:"max_proposals_per_user" binding:"required,gt=0"`     // Cap per user per round
	MaxContentLength     uint32 `json:"max_content_length" binding:"required,gt=0,lte=280"` // Advertised content length
}

// BackupWatermarkRequest is the body of PUT /admin/backup-watermark
type BackupWatermarkRequest struct {
	At time.Time `json:"at" binding:"required"` // Time of the last completed user backup
}

// ResolvePaymentRequest is the body of POST /admin/payments/:user_id/resolve
type ResolvePaymentRequest struct {
	BlockIndex *uint64 `json:"block_index"` // Settlement index when the transfer did go through
}

// CreateUserHandler registers a new member
func CreateUserHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		id, err := eng.CreateUser(identity, req.Identity)
		if err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb) // Membership changed
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// VerifyUserHandler marks a member as reviewed
func VerifyUserHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		id, ok := uint32Param(c, "id")
		if !ok {
			return
		}
		if err := eng.VerifyUser(identity, id); err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb)
		c.JSON(http.StatusOK, gin.H{"message": "User verified"})
	}
}

// ListUsersHandler returns all users, paginated and cached
func ListUsersHandler(eng *engine.Engine, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		// Create a cache key based on pagination parameters
		cacheKey := adminUsersCachePrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []domain.User `json:"users"`       // List of users
			Page       int           `json:"page"`        // Current page
			PageSize   int           `json:"page_size"`   // Page size
			Total      int           `json:"total"`       // Total number of users
			TotalPages int           `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		users := eng.Users()
		total := len(users)
		offset := min((page-1)*pageSize, total) // Calculate offset for pagination
		end := min(offset+pageSize, total)
		totalPages := (total + pageSize - 1) / pageSize // Calculate total pages
		// Prepare final response data
		respData := gin.H{
			"users":       users[offset:end], // List of users
			"page":        page,              // Current page
			"page_size":   pageSize,          // Page size
			"total":       total,             // Total number of users
			"total_pages": totalPages,        // Total pages
			"cached":      false,             // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, ttl)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// UserRangeHandler returns users whose id lies in [start, end]
func UserRangeHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, err := strconv.ParseUint(c.Query("start"), 10, 32)
		if err != nil {
			badRequest(c, "Invalid start")
			return
		}
		end, err := strconv.ParseUint(c.Query("end"), 10, 32)
		if err != nil || end < start {
			badRequest(c, "Invalid end")
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": eng.UserRange(uint32(start), uint32(end))})
	}
}

// ChangedUsersHandler returns users modified after since (RFC3339), or after
// the backup watermark when since is omitted, plus the server time to use as
// the next watermark
func ChangedUsersHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var since *time.Time
		if q := c.Query("since"); q != "" {
			t, err := time.Parse(time.RFC3339Nano, q)
			if err != nil {
				badRequest(c, "since must be an RFC3339 timestamp")
				return
			}
			since = &t
		}
		users, now := eng.ChangedUsers(since)
		c.JSON(http.StatusOK, gin.H{"users": users, "server_time": now})
	}
}

// UpdateSettingsHandler replaces the round settings
func UpdateSettingsHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req SettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid settings")
			return
		}
		settings := domain.Settings(req)
		if err := eng.UpdateSettings(identity, settings); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// BackupWatermarkHandler records when users were last backed up
func BackupWatermarkHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req BackupWatermarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		if err := eng.SetLastBackup(identity, req.At); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Backup watermark updated"})
	}
}

// PublishRoundHandler marks a round result as announced
func PublishRoundHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			badRequest(c, "Invalid index")
			return
		}
		if err := eng.PublishRound(identity, index); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Round published"})
	}
}

// ResolvePaymentHandler clears a payment left in progress after a crash
func ResolvePaymentHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		userID, ok := uint32Param(c, "user_id")
		if !ok {
			return
		}
		var req ResolvePaymentRequest
		// An empty body means the transfer never happened
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid request")
				return
			}
		}
		if err := eng.ResolveStuckPayment(identity, userID, req.BlockIndex); err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb)
		c.JSON(http.StatusOK, gin.H{"message": "Payment resolved", "settled": req.BlockIndex != nil})
	}
}
