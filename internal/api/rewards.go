package api

import (
	"context"  // Cache invalidation context
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"round_dao/internal/domain" // Domain errors
	"round_dao/internal/engine" // Governance engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// ClaimRewardHandler pays the caller's whole withdrawable balance to their
// deposit address
func ClaimRewardHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		blockIndex, err := eng.ClaimReward(c.Request.Context(), identity)
		if err == nil || errors.Is(err, domain.ErrTransferFailed) {
			// Balance and payment flag changed either way
			InvalidateUserCaches(context.WithoutCancel(c.Request.Context()), rdb)
		}
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"identity": identity,    // Caller identity
				"error":    err.Error(), // Error message
			}).Warn("Reward claim failed")
			respondError(c, err)
			return
		}
		// Log successful claim
		logrus.WithFields(logrus.Fields{
			"identity":    identity,                        // Caller identity
			"block_index": blockIndex,                      // Ledger settlement index
			"timestamp":   time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Reward claimed")
		c.JSON(http.StatusOK, gin.H{"block_index": blockIndex})
	}
}
