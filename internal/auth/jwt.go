// Package auth provides HS256 service-token issuing and validation for
// callers of the delivery API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrInvalidServiceToken = errors.New("invalid service token")
	ErrServiceTokenExpired = errors.New("service token has expired")
)

// DefaultTokenTTL is the default service-token lifetime.
const DefaultTokenTTL = 24 * time.Hour

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the shared HS256 signing key.
	SigningKey string

	// Issuer identifies this service in issued tokens.
	Issuer string

	// TokenTTL is the lifetime of issued tokens (default: 24h).
	TokenTTL time.Duration
}

// JWTService issues and validates service tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "pushrelay"
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		tokenTTL:   ttl,
	}
}

// IssueServiceToken mints a token for the named calling service.
func (s *JWTService) IssueServiceToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ValidateServiceToken verifies signature and expiry, returning the subject.
func (s *JWTService) ValidateServiceToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidServiceToken
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrServiceTokenExpired
		}
		return "", ErrInvalidServiceToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidServiceToken
	}
	return claims.Subject, nil
}
