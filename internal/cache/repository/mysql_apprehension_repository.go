package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/database"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

// MySQLApprehensionRepository implements ApprehensionRecord persistence for MySQL.
type MySQLApprehensionRepository struct {
	db *sql.DB
}

// NewMySQLApprehensionRepository creates a new MySQL apprehension repository instance.
func NewMySQLApprehensionRepository(db *sql.DB) *MySQLApprehensionRepository {
	return &MySQLApprehensionRepository{db: db}
}

// Create inserts a new apprehension record.
func (m *MySQLApprehensionRepository) Create(ctx context.Context, r *cacheDomain.ApprehensionRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO apprehension_records (` + apprehensionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		r.ID.String(),
		r.VehicleID.String(),
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
func (m *MySQLApprehensionRepository) Update(ctx context.Context, r *cacheDomain.ApprehensionRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE apprehension_records
			  SET status = ?, scheduled_at = ?, last_movement_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, r.Status, r.ScheduledAt, r.LastMovementAt, r.UpdatedAt, r.ID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to update apprehension record")
	}
	return nil
}

// GetByVehicleID retrieves the apprehension record of a cached vehicle.
func (m *MySQLApprehensionRepository) GetByVehicleID(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + apprehensionColumns + ` FROM apprehension_records
			  WHERE vehicle_id = ?
			  LIMIT 1`

	r, err := scanApprehension(querier.QueryRowContext(ctx, query, vehicleID.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cacheDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get apprehension record")
	}
	return r, nil
}
