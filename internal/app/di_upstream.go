package app

import (
	"fmt"

	upstreamService "github.com/msiav/vehicle-cache/internal/upstream/service"
)

// TokenManager returns the upstream token manager instance.
func (c *Container) TokenManager() (upstreamService.TokenManager, error) {
	var err error
	c.tokenManagerInit.Do(func() {
		c.tokenManager, err = c.initTokenManager()
		if err != nil {
			c.initErrors["tokenManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenManager"]; exists {
		return nil, storedErr
	}
	return c.tokenManager, nil
}

// UpstreamClient returns the notification API client instance.
func (c *Container) UpstreamClient() (upstreamService.Client, error) {
	var err error
	c.upstreamClientInit.Do(func() {
		c.upstreamClient, err = c.initUpstreamClient()
		if err != nil {
			c.initErrors["upstreamClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["upstreamClient"]; exists {
		return nil, storedErr
	}
	return c.upstreamClient, nil
}

// initTokenManager creates the token manager with its authenticator.
func (c *Container) initTokenManager() (upstreamService.TokenManager, error) {
	if c.config.UpstreamBaseURL == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL is not configured")
	}
	if c.config.UpstreamUsername == "" || c.config.UpstreamPassword == "" {
		return nil, fmt.Errorf("upstream credentials are not configured")
	}

	authenticator := upstreamService.NewSanctumAuthenticator(upstreamService.AuthenticatorConfig{
		BaseURL:        c.config.UpstreamBaseURL,
		Username:       c.config.UpstreamUsername,
		Password:       c.config.UpstreamPassword,
		RequestTimeout: c.config.UpstreamRequestTimeout,
	})

	return upstreamService.NewTokenManager(
		authenticator,
		upstreamService.TokenManagerConfig{
			RefreshInterval: c.config.UpstreamTokenRefreshInterval,
			MaxRetries:      c.config.UpstreamAuthMaxRetries,
			RetryCooldown:   c.config.UpstreamAuthRetryCooldown,
		},
		c.Logger(),
	), nil
}

// initUpstreamClient creates the notification API client.
func (c *Container) initUpstreamClient() (upstreamService.Client, error) {
	tokenManager, err := c.TokenManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get token manager for upstream client: %w", err)
	}

	return upstreamService.NewClient(
		upstreamService.ClientConfig{
			BaseURL:         c.config.UpstreamBaseURL,
			RequestTimeout:  c.config.UpstreamRequestTimeout,
			RateLimitPerSec: c.config.UpstreamRateLimitPerSec,
			RateLimitBurst:  c.config.UpstreamRateLimitBurst,
		},
		tokenManager,
		c.Logger(),
	), nil
}
