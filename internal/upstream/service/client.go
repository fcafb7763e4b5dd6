package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/msiav/vehicle-cache/internal/errors"
	"github.com/msiav/vehicle-cache/internal/upstream/domain"
)

// apiDateLayout is the date format used in period search paths.
const apiDateLayout = "2006-01-02"

// Client retrieves contract notifications from the upstream provider.
type Client interface {
	// SearchPeriod lists notifications received in the inclusive date window.
	SearchPeriod(ctx context.Context, start, end time.Time) ([]domain.Notification, error)

	// SearchCancelledPeriod lists notifications cancelled in the window.
	SearchCancelledPeriod(ctx context.Context, start, end time.Time) ([]domain.Notification, error)

	// FetchDetail retrieves the full notification payload for one plate.
	FetchDetail(ctx context.Context, plate string) (*domain.VehicleDetail, error)
}

// ClientConfig tunes the HTTP client behavior.
type ClientConfig struct {
	// BaseURL is the provider root, without a trailing slash.
	BaseURL string
	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
	// RateLimitPerSec caps outgoing request rate; zero disables the limiter.
	RateLimitPerSec float64
	// RateLimitBurst is the limiter burst size.
	RateLimitBurst int
}

type client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenManager
	logger     *slog.Logger
}

// NewClient creates a provider client that authenticates through the given
// token manager.
func NewClient(cfg ClientConfig, tokens TokenManager, logger *slog.Logger) Client {
	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, burst),
		tokens:     tokens,
		logger:     logger,
	}
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *client) SearchPeriod(ctx context.Context, start, end time.Time) ([]domain.Notification, error) {
	path := fmt.Sprintf("/api/recepcaoContrato/periodo/%s/%s",
		start.Format(apiDateLayout), end.Format(apiDateLayout))
	return c.search(ctx, path)
}

func (c *client) SearchCancelledPeriod(ctx context.Context, start, end time.Time) ([]domain.Notification, error) {
	path := fmt.Sprintf("/api/recepcaoContrato/cancelados/periodo/%s/%s",
		start.Format(apiDateLayout), end.Format(apiDateLayout))
	return c.search(ctx, path)
}

// search runs one period listing. Listing failures are not fatal for the
// sync pipeline: 404 means an empty window, and any other failure is logged
// and reported as an empty result so the caller can fall back or skip.
func (c *client) search(ctx context.Context, path string) ([]domain.Notification, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return []domain.Notification{}, nil
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("period search returned unexpected status", "path", path, "status", status)
		return []domain.Notification{}, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("period search returned unparsable body", "path", path, "error", err)
		return []domain.Notification{}, nil
	}
	if !env.Success {
		c.logger.Warn("period search reported failure", "path", path, "message", env.Message)
		return []domain.Notification{}, nil
	}

	var items []wireNotification
	if err := json.Unmarshal(env.Data, &items); err != nil {
		c.logger.Warn("period search data is not a list", "path", path, "error", err)
		return []domain.Notification{}, nil
	}

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, item.toDomain(time.Now()))
	}
	return notifications, nil
}

func (c *client) FetchDetail(ctx context.Context, plate string) (*domain.VehicleDetail, error) {
	payload, err := json.Marshal(map[string]string{"placa": plate})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, http.MethodPost, "/api/recepcaoContrato/receber", payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, errors.Wrap(errors.ErrNotFound, "no detail for plate")
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: detail fetch returned status %d", errors.ErrUpstreamUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: unparsable detail body: %v", errors.ErrUpstreamUnavailable, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: detail fetch reported failure: %s", errors.ErrUpstreamUnavailable, env.Message)
	}

	var item wireDetail
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return nil, fmt.Errorf("%w: unparsable detail data: %v", errors.ErrUpstreamUnavailable, err)
	}

	return item.toDomain(), nil
}

// do sends one authenticated request. A 401 triggers exactly one forced
// token refresh and retry; a second 401 propagates so callers do not loop
// on dead credentials.
func (c *client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Info("request unauthorized, refreshing token", "path", path)
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return 0, nil, err
		}

		status, respBody, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return 0, nil, err
		}
		if status == http.StatusUnauthorized {
			return 0, nil, errors.Wrap(errors.ErrUnauthorized, "provider rejected a freshly issued token")
		}
	}

	return status, respBody, nil
}

func (c *client) send(ctx context.Context, method, path string, body []byte, token string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err)
	}

	return resp.StatusCode, respBody, nil
}
