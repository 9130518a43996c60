package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService validates and issues operator access tokens.
type TokenService interface {
	// GenerateToken creates a signed token for the subject with the given roles.
	GenerateToken(subject string, roles []string, secret string, ttl time.Duration) (string, error)

	// ValidateToken parses and verifies a token string.
	ValidateToken(tokenString string, secret string) (*jwt.Token, error)
}
