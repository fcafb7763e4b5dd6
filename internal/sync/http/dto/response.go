package dto

import (
	"time"

	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	syncService "github.com/msiav/vehicle-cache/internal/sync/service"
	upstreamDomain "github.com/msiav/vehicle-cache/internal/upstream/domain"
)

// SchedulerStatusResponse describes the periodic job state.
type SchedulerStatusResponse struct {
	Enabled   bool       `json:"enabled"`
	IsRunning bool       `json:"is_running"`
	LastStart *time.Time `json:"last_start"`
	LastEnd   *time.Time `json:"last_end"`
}

// CacheStatusResponse describes the cached data set.
type CacheStatusResponse struct {
	TotalVehicles      int64      `json:"total_vehicles"`
	IncompleteVehicles int64      `json:"incomplete_vehicles"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
	MinutesSinceSync   *float64   `json:"minutes_since_sync"`
}

// SyncStatusResponse combines scheduler and cache state for the status endpoint.
type SyncStatusResponse struct {
	Scheduler SchedulerStatusResponse `json:"scheduler"`
	Cache     CacheStatusResponse     `json:"cache"`
}

// MapSyncStatusToResponse converts scheduler and cache status to an API response.
func MapSyncStatusToResponse(scheduler syncService.SchedulerStatus, cache *cacheUseCase.CacheStatus) SyncStatusResponse {
	return SyncStatusResponse{
		Scheduler: SchedulerStatusResponse{
			Enabled:   scheduler.Enabled,
			IsRunning: scheduler.IsRunning,
			LastStart: scheduler.LastStart,
			LastEnd:   scheduler.LastEnd,
		},
		Cache: CacheStatusResponse{
			TotalVehicles:      cache.TotalVehicles,
			IncompleteVehicles: cache.IncompleteVehicles,
			LastSyncedAt:       cache.LastSyncedAt,
			MinutesSinceSync:   cache.MinutesSinceSync,
		},
	}
}

// RunAcceptedResponse acknowledges a background refresh trigger.
type RunAcceptedResponse struct {
	Message string `json:"message"`
}

// RunEnrichmentResponse reports the outcome of a manual enrichment pass.
type RunEnrichmentResponse struct {
	Enriched int `json:"enriched"`
}

// TokenStatusResponse describes the upstream token lifecycle state.
type TokenStatusResponse struct {
	HasToken            bool       `json:"has_token"`
	Valid               bool       `json:"valid"`
	ExpiresAt           *time.Time `json:"expires_at"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	InCooldown          bool       `json:"in_cooldown"`
}

// MapTokenStatusToResponse converts a domain token status to an API response.
// The expiry is omitted when no token has been issued yet.
func MapTokenStatusToResponse(status upstreamDomain.TokenStatus) TokenStatusResponse {
	response := TokenStatusResponse{
		HasToken:            status.HasToken,
		Valid:               status.Valid,
		ConsecutiveFailures: status.ConsecutiveFailures,
		InCooldown:          status.InCooldown,
	}
	if !status.ExpiresAt.IsZero() {
		expiresAt := status.ExpiresAt
		response.ExpiresAt = &expiresAt
	}
	return response
}
