package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"round_dao/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// IdentityKey is the context key holding the authenticated caller identity
const IdentityKey = "identity"

// bearerToken extracts the token from an Authorization header
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// JWTAuthMiddleware validates JWT tokens and extracts the caller identity
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		// Check if the Authorization header is present and properly formatted
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(IdentityKey, claims.Identity) // Store identity in context
		c.Next()                            // Proceed to the next handler
	}
}

// OptionalJWTMiddleware sets the identity when a valid token is presented and
// lets anonymous requests through otherwise
func OptionalJWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearerToken(c); ok {
			if claims, err := utils.ParseJWT(tokenStr, secret); err == nil {
				c.Set(IdentityKey, claims.Identity)
			}
		}
		c.Next()
	}
}

// Identity returns the caller identity set by the JWT middlewares
func Identity(c *gin.Context) (string, bool) {
	identity := c.GetString(IdentityKey)
	return identity, identity != ""
}
