package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/database"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

// queryResultUseCase implements the QueryResultUseCase interface.
type queryResultUseCase struct {
	txManager        database.TxManager
	vehicleRepo      VehicleRepository
	apprehensionRepo ApprehensionRepository
	now              func() time.Time
}

// NewQueryResultUseCase creates a query result use case instance.
func NewQueryResultUseCase(
	txManager database.TxManager,
	vehicleRepo VehicleRepository,
	apprehensionRepo ApprehensionRepository,
) QueryResultUseCase {
	return &queryResultUseCase{
		txManager:        txManager,
		vehicleRepo:      vehicleRepo,
		apprehensionRepo: apprehensionRepo,
		now:              time.Now,
	}
}

// GetOrCreate returns the apprehension record for a vehicle, lazily creating
// one in the awaiting-scheduling status when none exists yet. The vehicle
// itself must exist.
func (q *queryResultUseCase) GetOrCreate(
	ctx context.Context,
	vehicleID uuid.UUID,
) (*cacheDomain.ApprehensionRecord, error) {
	vehicle, err := q.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	record, err := q.apprehensionRepo.GetByVehicleID(ctx, vehicleID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := q.now().UTC()
	status := vehicle.ApprehensionStatus
	if status == "" {
		status = cacheDomain.StatusAwaitingScheduling
	}
	record = &cacheDomain.ApprehensionRecord{
		ID:             uuid.Must(uuid.NewV7()),
		VehicleID:      vehicleID,
		Status:         status,
		LastMovementAt: vehicle.LastMovementAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := q.apprehensionRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// Schedule sets the diligence appointment time on a vehicle's record. The
// record must already exist; creation happens only through GetOrCreate, so
// a schedule call never conjures up state the caller has not seen. The
// appointment time is always replaced; the status transition to scheduled
// happens only once, so repeated scheduling never regresses a record that
// already moved past it.
func (q *queryResultUseCase) Schedule(
	ctx context.Context,
	vehicleID uuid.UUID,
	scheduledAt time.Time,
) (*cacheDomain.ApprehensionRecord, error) {
	var record *cacheDomain.ApprehensionRecord

	err := q.txManager.WithTx(ctx, func(txCtx context.Context) error {
		vehicle, err := q.vehicleRepo.GetByID(txCtx, vehicleID)
		if err != nil {
			return err
		}

		record, err = q.apprehensionRepo.GetByVehicleID(txCtx, vehicleID)
		if err != nil {
			return err
		}

		now := q.now().UTC()
		record.ScheduledAt = &scheduledAt
		record.UpdatedAt = now
		if !record.Scheduled() {
			record.Status = cacheDomain.StatusScheduled
			record.LastMovementAt = now
		}
		if err := q.apprehensionRepo.Update(txCtx, record); err != nil {
			return err
		}

		if !strings.EqualFold(vehicle.ApprehensionStatus, cacheDomain.StatusScheduled) {
			vehicle.ApprehensionStatus = cacheDomain.StatusScheduled
			vehicle.LastMovementAt = now
			vehicle.UpdatedAt = now
			if err := q.vehicleRepo.Update(txCtx, vehicle); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}
