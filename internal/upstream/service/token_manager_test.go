package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/msiav/vehicle-cache/internal/errors"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func testTokenConfig() TokenManagerConfig {
	return TokenManagerConfig{
		RefreshInterval: 4 * time.Hour,
		MaxRetries:      3,
		RetryCooldown:   5 * time.Minute,
	}
}

func newTestManager(auth Authenticator, cfg TokenManagerConfig) (*tokenManager, *time.Time) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	m := &tokenManager{
		auth:   auth,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return now },
	}
	return m, &now
}

func TestTokenManager_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches and caches token", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()

		m, _ := newTestManager(auth, testTokenConfig())

		token, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)

		// Second call reuses the cached token.
		token, err = m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)

		auth.AssertExpectations(t)
	})

	t.Run("refreshes inside expiry margin", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()
		auth.On("Authenticate", ctx).Return("token-2", nil).Once()

		m, now := newTestManager(auth, testTokenConfig())

		token, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)

		// Lifetime is RefreshInterval - 5min; 1 minute before that boundary
		// the token is already inside the margin and must be refreshed.
		*now = now.Add(4*time.Hour - 5*time.Minute - 5*time.Minute - time.Minute)
		token, err = m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token, "outside margin, still valid")

		*now = now.Add(2 * time.Minute)
		token, err = m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-2", token, "inside margin, refreshed")

		auth.AssertExpectations(t)
	})

	t.Run("applies minimum lifetime floor", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()

		cfg := testTokenConfig()
		cfg.RefreshInterval = 30 * time.Minute
		m, now := newTestManager(auth, cfg)

		_, err := m.Token(ctx)
		require.NoError(t, err)

		status := m.Status()
		assert.Equal(t, now.Add(time.Hour), status.ExpiresAt)
	})
}

func TestTokenManager_Refresh(t *testing.T) {
	ctx := context.Background()

	auth := &mockAuthenticator{}
	auth.On("Authenticate", ctx).Return("token-1", nil).Once()
	auth.On("Authenticate", ctx).Return("token-2", nil).Once()

	m, _ := newTestManager(auth, testTokenConfig())

	token, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Forced refresh discards the valid cached token.
	token, err = m.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	auth.AssertExpectations(t)
}

func TestTokenManager_FailureAccounting(t *testing.T) {
	ctx := context.Background()

	t.Run("failure clears token and wraps error", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()
		auth.On("Authenticate", ctx).Return("", assert.AnError).Once()

		m, _ := newTestManager(auth, testTokenConfig())

		_, err := m.Token(ctx)
		require.NoError(t, err)

		_, err = m.Refresh(ctx)
		assert.ErrorIs(t, err, errors.ErrAuthFailed)

		status := m.Status()
		assert.False(t, status.HasToken)
		assert.Equal(t, 1, status.ConsecutiveFailures)
	})

	t.Run("enters cooldown after max retries", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("", assert.AnError).Times(3)

		m, now := newTestManager(auth, testTokenConfig())

		for range 3 {
			_, err := m.Token(ctx)
			assert.ErrorIs(t, err, errors.ErrAuthFailed)
		}

		// Fourth attempt fails fast without calling the authenticator.
		_, err := m.Token(ctx)
		assert.ErrorIs(t, err, errors.ErrAuthCooldown)
		auth.AssertNumberOfCalls(t, "Authenticate", 3)
		assert.True(t, m.Status().InCooldown)

		// After the cooldown window the counter resets and attempts resume.
		*now = now.Add(5*time.Minute + time.Second)
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()

		token, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
		assert.Equal(t, 0, m.Status().ConsecutiveFailures)

		auth.AssertExpectations(t)
	})

	t.Run("success resets failure counter", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Authenticate", ctx).Return("", assert.AnError).Twice()
		auth.On("Authenticate", ctx).Return("token-1", nil).Once()

		m, _ := newTestManager(auth, testTokenConfig())

		_, _ = m.Token(ctx)
		_, _ = m.Token(ctx)
		assert.Equal(t, 2, m.Status().ConsecutiveFailures)

		_, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, m.Status().ConsecutiveFailures)
	})
}

// slowAuthenticator counts credential exchanges and simulates latency so
// concurrent callers overlap.
type slowAuthenticator struct {
	calls atomic.Int32
}

func (s *slowAuthenticator) Authenticate(ctx context.Context) (string, error) {
	s.calls.Add(1)
	time.Sleep(50 * time.Millisecond)
	return "token-1", nil
}

func TestTokenManager_SingleFlightRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	auth := &slowAuthenticator{}
	m := NewTokenManager(auth, testTokenConfig(), slog.New(slog.DiscardHandler))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.Token(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "token-1", token)
		}()
	}
	wg.Wait()

	// Only the first caller performs the exchange; the rest find a valid
	// cached token once they acquire the lock.
	assert.Equal(t, int32(1), auth.calls.Load())
}
