package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// ErrMissingIdentity is returned for a well-signed token without an identity
var ErrMissingIdentity = errors.New("token carries no identity")

// JWT Claims
type Claims struct {
	Identity             string `json:"identity"` // Caller identity the session speaks for
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a session token for identity that expires after ttl
func GenerateJWT(identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// Set token claims
	claims := Claims{
		Identity: identity, // Custom claim for the caller identity
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,                         // Mirrors the identity for generic tooling
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid // Return error if token is invalid
	}
	if claims.Identity == "" {
		return nil, ErrMissingIdentity
	}
	return claims, nil
}
