// Package service implements authentication and data retrieval against the
// upstream contract notification provider.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/msiav/vehicle-cache/internal/errors"
	"github.com/msiav/vehicle-cache/internal/upstream/domain"
)

// minTokenLifetime is the floor applied to the computed token lifetime.
const minTokenLifetime = time.Hour

// Authenticator performs the credential exchange against the provider.
type Authenticator interface {
	// Authenticate exchanges the configured credentials for a bearer token.
	Authenticate(ctx context.Context) (string, error)
}

// TokenManager caches the provider bearer token and serializes refreshes.
type TokenManager interface {
	// Token returns a valid bearer token, refreshing it when needed.
	Token(ctx context.Context) (string, error)

	// Refresh discards any cached token and performs a new credential
	// exchange. Used after the provider rejects a request with 401.
	Refresh(ctx context.Context) (string, error)

	// Status returns a snapshot of the manager state.
	Status() domain.TokenStatus
}

// TokenManagerConfig tunes the token lifecycle.
type TokenManagerConfig struct {
	// RefreshInterval is the nominal token lifetime reported by the provider.
	RefreshInterval time.Duration
	// MaxRetries is the number of consecutive failures before cooldown.
	MaxRetries int
	// RetryCooldown is how long authentication stays suspended after
	// MaxRetries consecutive failures.
	RetryCooldown time.Duration
}

type tokenManager struct {
	auth   Authenticator
	cfg    TokenManagerConfig
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	token         *domain.AuthToken
	failures      int
	lastFailureAt time.Time
}

// NewTokenManager creates a TokenManager over the given authenticator.
func NewTokenManager(auth Authenticator, cfg TokenManagerConfig, logger *slog.Logger) TokenManager {
	return &tokenManager{
		auth:   auth,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (m *tokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.Valid(m.now()) {
		return m.token.Value, nil
	}

	return m.refreshLocked(ctx)
}

func (m *tokenManager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
	return m.refreshLocked(ctx)
}

func (m *tokenManager) Status() domain.TokenStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	status := domain.TokenStatus{
		HasToken:            m.token != nil && m.token.Value != "",
		Valid:               m.token.Valid(now),
		ConsecutiveFailures: m.failures,
		InCooldown:          m.inCooldown(now),
	}
	if m.token != nil {
		status.ExpiresAt = m.token.ExpiresAt
	}
	return status
}

// refreshLocked performs the credential exchange. The caller must hold m.mu,
// which makes the refresh single-flight: concurrent callers block here and
// find a fresh token once the first refresh finishes.
func (m *tokenManager) refreshLocked(ctx context.Context) (string, error) {
	now := m.now()

	if m.inCooldown(now) {
		return "", fmt.Errorf("%w: %d consecutive failures, retrying after %s",
			errors.ErrAuthCooldown, m.failures, m.lastFailureAt.Add(m.cfg.RetryCooldown).Format(time.RFC3339))
	}
	if m.failures >= m.cfg.MaxRetries {
		// Cooldown elapsed, start counting over.
		m.failures = 0
	}

	value, err := m.auth.Authenticate(ctx)
	if err != nil {
		m.failures++
		m.lastFailureAt = now
		m.token = nil
		m.logger.Error("upstream authentication failed",
			"error", err,
			"consecutive_failures", m.failures,
		)
		return "", fmt.Errorf("%w: %v", errors.ErrAuthFailed, err)
	}

	m.failures = 0
	m.token = &domain.AuthToken{
		Value:     value,
		ExpiresAt: now.Add(m.tokenLifetime()),
	}
	m.logger.Info("upstream token refreshed", "expires_at", m.token.ExpiresAt)

	return value, nil
}

// tokenLifetime shortens the nominal lifetime by the validity margin and
// never drops below one hour, so a misconfigured tiny interval cannot cause
// a refresh storm.
func (m *tokenManager) tokenLifetime() time.Duration {
	lifetime := m.cfg.RefreshInterval - domain.ExpiryMargin
	if lifetime < minTokenLifetime {
		return minTokenLifetime
	}
	return lifetime
}

func (m *tokenManager) inCooldown(now time.Time) bool {
	return m.failures >= m.cfg.MaxRetries && now.Sub(m.lastFailureAt) < m.cfg.RetryCooldown
}
