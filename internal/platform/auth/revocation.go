package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type revocationEntry struct {
	ExpiresAt time.Time
	UserID    string
}

// RevocationStore remembers signed-out tokens by their JWT ID until they
// would have expired anyway. Safe for concurrent use.
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry // jti -> entry
	now     func() time.Time
	done    chan struct{}
}

// NewRevocationStore creates a store and starts a goroutine that drops
// expired entries every interval. Call Close to stop it.
func NewRevocationStore(interval time.Duration) *RevocationStore {
	s := &RevocationStore{
		entries: make(map[string]revocationEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go s.cleanupLoop(interval)
	return s
}

// Revoke marks jti as signed out. Tokens without an expiry are kept for a
// day, which is longer than any token the clinic issues.
func (s *RevocationStore) Revoke(jti, userID string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(24 * time.Hour)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt, UserID: userID}
}

// RevokeClaims revokes the token the claims came from.
func (s *RevocationStore) RevokeClaims(c *Claims) {
	if c == nil {
		return
	}
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	s.Revoke(c.ID, c.Subject, exp)
}

func (s *RevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok
}

// RevokedForUser counts the live revocations held for userID.
func (s *RevocationStore) RevokedForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

func (s *RevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *RevocationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *RevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *RevocationStore) cleanup() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
}

// RejectRevoked fails requests whose token was signed out. It must run
// after JWTMiddleware; anonymous development requests pass through.
func RejectRevoked(store *RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if claims := ClaimsFromContext(c.Request().Context()); claims != nil && store.IsRevoked(claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}
			return next(c)
		}
	}
}
