package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
)

// Manager owns the session lifecycle: start, login, logout and teardown on
// an unauthorized response.
type Manager struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

func NewManager(store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
		now:    time.Now,
	}
}

// Start loads a stored session. ErrNoSession (or ErrExpired) means the caller
// should route to login.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		m.logger.Info().Str("user_id", s.UserID).Msg("stored session expired")
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("failed to clear expired session")
		}
		return nil, ErrExpired
	}
	m.set(s)
	return s, nil
}

// Login adopts token as the current session and persists it.
func (m *Manager) Login(ctx context.Context, token string) (*Session, error) {
	s, err := FromToken(token)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		return nil, ErrExpired
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.set(s)
	m.logger.Info().Str("user_id", s.UserID).Str("role", s.Role.String()).Msg("signed in")
	return s, nil
}

// Logout drops the in-memory session and removes the stored one.
func (m *Manager) Logout(ctx context.Context) error {
	m.set(nil)
	return m.store.Clear(ctx)
}

// Current returns the active session, if any.
func (m *Manager) Current() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current != nil
}

// Token is a clinicapi token source.
func (m *Manager) Token() string {
	if s, ok := m.Current(); ok {
		return s.Token
	}
	return ""
}

// HandleUnauthorized tears the session down when err is an authorization
// failure from the clinic server. It reports whether it did.
func (m *Manager) HandleUnauthorized(ctx context.Context, err error) bool {
	if !errors.Is(err, clinicapi.ErrUnauthorized) {
		return false
	}
	m.logger.Warn().Err(err).Msg("server rejected credentials, signing out")
	if clearErr := m.Logout(ctx); clearErr != nil {
		m.logger.Error().Err(clearErr).Msg("failed to clear session")
	}
	return true
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}
