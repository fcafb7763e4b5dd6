// Package http provides HTTP handlers for sync and enrichment operations.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	"github.com/msiav/vehicle-cache/internal/httputil"
	"github.com/msiav/vehicle-cache/internal/sync/http/dto"
	syncService "github.com/msiav/vehicle-cache/internal/sync/service"
	upstreamDomain "github.com/msiav/vehicle-cache/internal/upstream/domain"
	customValidation "github.com/msiav/vehicle-cache/internal/validation"
)

// Scheduler exposes the periodic refresh job to the HTTP surface.
type Scheduler interface {
	Status() syncService.SchedulerStatus
	RunRefresh(ctx context.Context) error
}

// Enricher exposes manual enrichment passes to the HTTP surface.
type Enricher interface {
	EnrichIncomplete(ctx context.Context, limit int) (int, error)
	EnrichAsync(ids []uuid.UUID)
}

// TokenReporter exposes the upstream token lifecycle state.
type TokenReporter interface {
	Status() upstreamDomain.TokenStatus
}

// SyncHandler handles HTTP requests for sync, enrichment and token status.
type SyncHandler struct {
	scheduler Scheduler
	cache     cacheUseCase.CacheUseCase
	enricher  Enricher
	tokens    TokenReporter
	logger    *slog.Logger
}

// NewSyncHandler creates a new sync handler with required dependencies.
func NewSyncHandler(
	scheduler Scheduler,
	cache cacheUseCase.CacheUseCase,
	enricher Enricher,
	tokens TokenReporter,
	logger *slog.Logger,
) *SyncHandler {
	return &SyncHandler{
		scheduler: scheduler,
		cache:     cache,
		enricher:  enricher,
		tokens:    tokens,
		logger:    logger,
	}
}

// StatusHandler reports the scheduler job state alongside cache counters.
// GET /v1/sync/status
func (h *SyncHandler) StatusHandler(c *gin.Context) {
	cacheStatus, err := h.cache.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapSyncStatusToResponse(h.scheduler.Status(), cacheStatus)
	c.JSON(http.StatusOK, response)
}

// RunHandler triggers a cache refresh in the background.
// POST /v1/sync/run - Returns 202 Accepted immediately. The refresh itself
// still honors the shared job lock, so a concurrent run is skipped, not queued.
func (h *SyncHandler) RunHandler(c *gin.Context) {
	// Detach from the request so the refresh outlives the response.
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := h.scheduler.RunRefresh(ctx); err != nil {
			h.logger.Error("manual refresh failed", slog.Any("error", err))
		}
	}()

	c.JSON(http.StatusAccepted, dto.RunAcceptedResponse{Message: "refresh scheduled"})
}

// EnrichHandler runs one enrichment pass over incomplete vehicles.
// POST /v1/enrichment/run - Body: {"limit": N}, zero means no limit. A body
// with {"ids": [...]} instead enriches those vehicles in the background and
// returns 202 immediately.
func (h *SyncHandler) EnrichHandler(c *gin.Context) {
	var req dto.RunEnrichmentRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if len(req.IDs) > 0 {
		h.enricher.EnrichAsync(req.IDs)
		c.JSON(http.StatusAccepted, dto.RunAcceptedResponse{Message: "enrichment scheduled"})
		return
	}

	enriched, err := h.enricher.EnrichIncomplete(c.Request.Context(), req.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RunEnrichmentResponse{Enriched: enriched})
}

// TokenStatusHandler reports the upstream token lifecycle state.
// GET /v1/upstream/token - Never exposes the token value itself.
func (h *SyncHandler) TokenStatusHandler(c *gin.Context) {
	response := dto.MapTokenStatusToResponse(h.tokens.Status())
	c.JSON(http.StatusOK, response)
}
