package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminOnlyMiddleware lets only the configured admin identity through. An empty
// admin identity rejects everyone.
func AdminOnlyMiddleware(adminIdentity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := Identity(c) // Get identity from context
		// Check if identity exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if the caller is the admin
		if adminIdentity == "" || identity != adminIdentity {
			logrus.WithFields(logrus.Fields{
				"identity": identity,         // Caller identity
				"path":     c.FullPath(),     // Route attempted
				"method":   c.Request.Method, // HTTP method
			}).Warn("Admin route refused")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
