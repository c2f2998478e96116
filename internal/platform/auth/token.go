package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRequest describes a token to mint. Used by the backend seed and the
// "token" CLI command in development.
type TokenRequest struct {
	Subject string
	Name    string
	Role    Role
	TTL     time.Duration
	Now     time.Time
}

// IssueToken signs an HS256 token for req with cfg's key, issuer and audience.
func IssueToken(cfg JWTConfig, req TokenRequest) (string, error) {
	if len(cfg.SigningKey) == 0 {
		return "", fmt.Errorf("signing key is required")
	}
	if !req.Role.Valid() {
		return "", fmt.Errorf("invalid role %s", req.Role)
	}
	if req.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   req.Subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: req.Name,
		Role: req.Role,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
