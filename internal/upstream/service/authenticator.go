package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/msiav/vehicle-cache/internal/errors"
)

// AuthenticatorConfig holds the Sanctum credential exchange settings.
type AuthenticatorConfig struct {
	// BaseURL is the provider root, without a trailing slash.
	BaseURL string
	// Username is the account email.
	Username string
	// Password is the account password.
	Password string
	// RequestTimeout bounds the token request.
	RequestTimeout time.Duration
}

type sanctumAuthenticator struct {
	cfg        AuthenticatorConfig
	httpClient *http.Client
}

// NewSanctumAuthenticator creates an Authenticator for the provider's
// POST /api/sanctum/token endpoint.
func NewSanctumAuthenticator(cfg AuthenticatorConfig) Authenticator {
	return &sanctumAuthenticator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (a *sanctumAuthenticator) Authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":       a.cfg.Username,
		"password":    a.cfg.Password,
		"device_name": "vehicle-cache",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, a.cfg.BaseURL+"/api/sanctum/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	token := extractToken(body)
	if token == "" {
		return "", fmt.Errorf("token endpoint returned no token: %s", truncate(body, 200))
	}

	return token, nil
}

// extractToken handles both response shapes the provider has used: a bare
// {"token": ...} object and the standard success envelope with the token
// under data.
func extractToken(body []byte) string {
	var flat struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Token != "" {
		return flat.Token
	}

	var wrapped struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return wrapped.Data.Token
	}

	return ""
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
