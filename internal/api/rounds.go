package api

import (
	"net/http" // HTTP status codes

	"round_dao/internal/engine" // Governance engine
	"round_dao/internal/ledger" // Account identifiers

	"github.com/gin-gonic/gin" // Gin web framework
)

// RoundEndTimeHandler reports when the current round ends
func RoundEndTimeHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"round_end_time":        eng.RoundEndTime(),                 // Absolute end time
			"next_round_in_seconds": int64(eng.NextRoundIn().Seconds()), // Countdown
		})
	}
}

// NextUnpublishedHandler returns the oldest round result not yet announced,
// or null when every result is published
func NextUnpublishedHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, ok := eng.NextUnpublished()
		if !ok {
			c.JSON(http.StatusOK, gin.H{"result": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// TreasuryAccountHandler returns the account donations and rewards flow through
func TreasuryAccountHandler(treasuryIdentity string) gin.HandlerFunc {
	account := ledger.NewAccountIdentifier([]byte(treasuryIdentity), nil).String()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account": account})
	}
}
