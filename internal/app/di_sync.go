package app

import (
	"fmt"

	syncService "github.com/msiav/vehicle-cache/internal/sync/service"
)

// BatchFetchOrchestrator returns the batch fetch orchestrator instance.
func (c *Container) BatchFetchOrchestrator() (*syncService.BatchFetchOrchestrator, error) {
	var err error
	c.orchestratorInit.Do(func() {
		c.orchestrator, err = c.initBatchFetchOrchestrator()
		if err != nil {
			c.initErrors["orchestrator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orchestrator"]; exists {
		return nil, storedErr
	}
	return c.orchestrator, nil
}

// EnrichmentService returns the enrichment service instance.
func (c *Container) EnrichmentService() (*syncService.EnrichmentService, error) {
	var err error
	c.enrichmentInit.Do(func() {
		c.enrichment, err = c.initEnrichmentService()
		if err != nil {
			c.initErrors["enrichment"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["enrichment"]; exists {
		return nil, storedErr
	}
	return c.enrichment, nil
}

// SyncScheduler returns the scheduler instance coordinating the periodic jobs.
func (c *Container) SyncScheduler() (*syncService.SyncScheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		c.scheduler, err = c.initSyncScheduler()
		if err != nil {
			c.initErrors["scheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

// initBatchFetchOrchestrator creates the orchestrator with its dependencies.
func (c *Container) initBatchFetchOrchestrator() (*syncService.BatchFetchOrchestrator, error) {
	client, err := c.UpstreamClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream client for orchestrator: %w", err)
	}

	gate, err := c.CryptoGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gate for orchestrator: %w", err)
	}

	return syncService.NewBatchFetchOrchestrator(client, gate, c.Logger()), nil
}

// initEnrichmentService creates the enrichment service with its dependencies.
func (c *Container) initEnrichmentService() (*syncService.EnrichmentService, error) {
	client, err := c.UpstreamClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream client for enrichment service: %w", err)
	}

	vehicleRepo, err := c.VehicleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle repository for enrichment service: %w", err)
	}

	gate, err := c.CryptoGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gate for enrichment service: %w", err)
	}

	return syncService.NewEnrichmentService(
		client,
		vehicleRepo,
		gate,
		c.Logger(),
		syncService.EnrichmentConfig{
			Concurrency: c.config.EnrichmentConcurrency,
			ItemTimeout: c.config.EnrichmentItemTimeout,
		},
	), nil
}

// initSyncScheduler creates the scheduler with its dependencies.
func (c *Container) initSyncScheduler() (*syncService.SyncScheduler, error) {
	orchestrator, err := c.BatchFetchOrchestrator()
	if err != nil {
		return nil, fmt.Errorf("failed to get orchestrator for scheduler: %w", err)
	}

	cache, err := c.CacheUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache use case for scheduler: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for scheduler: %w", err)
	}

	return syncService.NewSyncScheduler(
		orchestrator,
		cache,
		c.Logger(),
		businessMetrics,
		syncService.SchedulerConfig{
			Enabled:         c.config.CacheUpdateEnabled,
			DaysToFetch:     c.config.CacheUpdateDaysToFetch,
			FallbackDays:    c.config.CacheUpdateFallbackDays,
			MaxExecution:    c.config.CacheUpdateMaxExecution,
			RefreshInterval: c.config.CacheUpdateInterval,
			CleanupInterval: c.config.CacheCleanupInterval,
			DedupInterval:   c.config.CacheDedupInterval,
		},
	), nil
}
