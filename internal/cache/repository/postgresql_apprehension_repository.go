package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/database"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

const apprehensionColumns = `id, vehicle_id, status, scheduled_at, last_movement_at, created_at, updated_at`

// PostgreSQLApprehensionRepository implements ApprehensionRecord persistence for PostgreSQL.
type PostgreSQLApprehensionRepository struct {
	db *sql.DB
}

// NewPostgreSQLApprehensionRepository creates a new PostgreSQL apprehension repository instance.
func NewPostgreSQLApprehensionRepository(db *sql.DB) *PostgreSQLApprehensionRepository {
	return &PostgreSQLApprehensionRepository{db: db}
}

// Create inserts a new apprehension record.
func (p *PostgreSQLApprehensionRepository) Create(ctx context.Context, r *cacheDomain.ApprehensionRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO apprehension_records (` + apprehensionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		r.ID,
		r.VehicleID,
		r.Status,
		r.ScheduledAt,
		r.LastMovementAt,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create apprehension record")
	}
	return nil
}

// Update persists the mutable columns of an apprehension record.
func (p *PostgreSQLApprehensionRepository) Update(ctx context.Context, r *cacheDomain.ApprehensionRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE apprehension_records
			  SET status = $1, scheduled_at = $2, last_movement_at = $3, updated_at = $4
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, r.Status, r.ScheduledAt, r.LastMovementAt, r.UpdatedAt, r.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update apprehension record")
	}
	return nil
}

// GetByVehicleID retrieves the apprehension record of a cached vehicle.
func (p *PostgreSQLApprehensionRepository) GetByVehicleID(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apprehensionColumns + ` FROM apprehension_records
			  WHERE vehicle_id = $1
			  LIMIT 1`

	r, err := scanApprehension(querier.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cacheDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get apprehension record")
	}
	return r, nil
}

func scanApprehension(row rowScanner) (*cacheDomain.ApprehensionRecord, error) {
	var r cacheDomain.ApprehensionRecord
	var scheduledAt sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.VehicleID,
		&r.Status,
		&scheduledAt,
		&r.LastMovementAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		r.ScheduledAt = &scheduledAt.Time
	}
	return &r, nil
}
