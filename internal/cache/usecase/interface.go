// Package usecase implements business logic orchestration for the vehicle cache.
// This package coordinates between the field encryption gate, repositories, and
// domain logic to keep the local cache consistent with upstream notification data.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
)

// VehicleRepository defines the interface for cached vehicle persistence operations.
type VehicleRepository interface {
	// Create persists a new cached vehicle.
	Create(ctx context.Context, vehicle *cacheDomain.CachedVehicle) error

	// Update persists changes to an existing cached vehicle.
	Update(ctx context.Context, vehicle *cacheDomain.CachedVehicle) error

	// GetByID retrieves a cached vehicle by its primary key.
	// Returns cacheDomain.ErrVehicleNotFound if no vehicle exists.
	GetByID(ctx context.Context, id uuid.UUID) (*cacheDomain.CachedVehicle, error)

	// GetByContractPlateHash retrieves the most recently synced vehicle
	// matching the composite contract+plate lookup hash.
	// Returns cacheDomain.ErrVehicleNotFound if no vehicle exists.
	GetByContractPlateHash(ctx context.Context, hash string) (*cacheDomain.CachedVehicle, error)

	// ListIncomplete returns active vehicles missing enrichment data,
	// oldest sync first, up to limit.
	ListIncomplete(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error)

	// ListMissingHashes returns vehicles whose lookup hash columns are unset.
	ListMissingHashes(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error)

	// CountActive returns the number of active cached vehicles.
	CountActive(ctx context.Context) (int64, error)

	// CountIncomplete returns the number of active vehicles missing enrichment data.
	CountIncomplete(ctx context.Context) (int64, error)

	// LastSyncedAt returns the most recent sync timestamp, or nil when the cache is empty.
	LastSyncedAt(ctx context.Context) (*time.Time, error)

	// RetireOlderThan deactivates vehicles whose last movement predates cutoff.
	// Returns the number of vehicles retired.
	RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// ListDuplicateHashes returns contract+plate hashes held by more than one row.
	ListDuplicateHashes(ctx context.Context) ([]string, error)

	// ListByContractPlateHash returns all vehicles sharing a lookup hash,
	// most recently synced first.
	ListByContractPlateHash(ctx context.Context, hash string) ([]*cacheDomain.CachedVehicle, error)

	// Delete removes a cached vehicle permanently.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ApprehensionRepository defines the interface for apprehension record persistence.
type ApprehensionRepository interface {
	// Create persists a new apprehension record.
	Create(ctx context.Context, record *cacheDomain.ApprehensionRecord) error

	// Update persists changes to an existing apprehension record.
	Update(ctx context.Context, record *cacheDomain.ApprehensionRecord) error

	// GetByVehicleID retrieves the apprehension record for a vehicle.
	// Returns cacheDomain.ErrRecordNotFound if no record exists.
	GetByVehicleID(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error)
}

// CacheStatus summarizes the state of the vehicle cache.
type CacheStatus struct {
	TotalVehicles      int64      `json:"total_vehicles"`
	IncompleteVehicles int64      `json:"incomplete_vehicles"`
	LastSyncedAt       *time.Time `json:"last_synced_at"`
	MinutesSinceSync   *float64   `json:"minutes_since_sync"`
}

// UpdateResult reports the outcome of a cache update pass.
type UpdateResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// CacheUseCase defines operations for maintaining the cached vehicle store.
type CacheUseCase interface {
	// UpdateCache merges a batch of freshly fetched vehicles into the cache,
	// creating new rows and updating existing ones matched by lookup hash.
	UpdateCache(ctx context.Context, vehicles []*cacheDomain.CachedVehicle) (*UpdateResult, error)

	// CleanupOld retires vehicles whose last movement is beyond the retention window.
	CleanupOld(ctx context.Context) (int64, error)

	// Deduplicate removes duplicate cache rows sharing a contract+plate hash,
	// keeping the most recently synced row of each group.
	Deduplicate(ctx context.Context) (int64, error)

	// DeactivateByHashes retires the cached vehicles matching the given
	// contract+plate lookup hashes. Used when upstream reports a
	// notification as cancelled. Returns the number of rows retired.
	DeactivateByHashes(ctx context.Context, hashes []string) (int64, error)

	// Status reports cache totals and sync freshness.
	Status(ctx context.Context) (*CacheStatus, error)

	// BackfillHashes computes lookup hashes for rows persisted before
	// hash columns existed. Returns the number of rows updated.
	BackfillHashes(ctx context.Context, limit int) (int64, error)
}

// QueryResultUseCase defines operations for per-vehicle apprehension records.
type QueryResultUseCase interface {
	// GetOrCreate returns the apprehension record for a vehicle, lazily
	// creating one in the initial awaiting-scheduling status.
	GetOrCreate(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error)

	// Schedule sets the diligence appointment time on a vehicle's record,
	// promoting its status to scheduled when not already there.
	Schedule(ctx context.Context, vehicleID uuid.UUID, scheduledAt time.Time) (*cacheDomain.ApprehensionRecord, error)
}
