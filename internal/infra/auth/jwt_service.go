// Package auth provides the concrete implementation of the operator token service.
package auth

import (
	"time"

	"beacon/config"
	"beacon/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct{}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &jwtService{}, nil
}

// GenerateToken creates a signed token for the subject with the given roles.
func (s *jwtService) GenerateToken(subject string, roles []string, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,                    // Subject (who the token is for)
		"iat": time.Now().Unix(),          // Issued At
		"exp": time.Now().Add(ttl).Unix(), // Expiration Time
	}
	// Roles only matter for stateless authorization checks.
	if roles != nil {
		claims["roles"] = roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ValidateToken checks the validity of a token string against a secret.
func (s *jwtService) ValidateToken(tokenString string, secret string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return []byte(secret), nil
	})
}
