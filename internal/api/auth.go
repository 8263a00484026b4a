package api

import (
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"round_dao/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// SessionRequest is the body of POST /session
type SessionRequest struct {
	Key string `json:"key" binding:"required"` // Admin key
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// SessionHandler exchanges the admin key for a session token speaking for the
// admin identity. Member tokens are issued by the identity gateway with the
// same secret.
func SessionHandler(adminIdentity, keyHash, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SessionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			badRequest(c, "Invalid request")
			return
		}
		// Admin login is disabled until both the identity and the key hash are configured
		if adminIdentity == "" || keyHash == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		// Compare provided key with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(req.Key)); err != nil {
			logrus.WithField("client_ip", c.ClientIP()).Warn("Admin login refused")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "unauthorized"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(adminIdentity, jwtSecret, ttl)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token", "code": "internal"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
