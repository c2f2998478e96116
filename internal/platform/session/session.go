// Package session holds the signed-in user for the front desk. A Session is
// an explicit value passed to the workflows that need it; nothing reads it
// from ambient state.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
)

var (
	// ErrNoSession means the user has to sign in.
	ErrNoSession = errors.New("no active session")
	ErrExpired   = fmt.Errorf("%w: session expired", ErrNoSession)
)

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FromToken builds a session from a bearer token's claims. The signature is
// not checked here; the servers the token is sent to do that.
func FromToken(token string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("read token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("token has no role")
	}
	s := &Session{
		Token:  token,
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the token's expiry has passed. Tokens without an
// expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) Views() (auth.ViewSet, error) {
	return auth.Views(s.Role)
}
