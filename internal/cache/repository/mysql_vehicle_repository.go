package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/database"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

// MySQLVehicleRepository implements CachedVehicle persistence for MySQL.
type MySQLVehicleRepository struct {
	db *sql.DB
}

// NewMySQLVehicleRepository creates a new MySQL vehicle repository instance.
func NewMySQLVehicleRepository(db *sql.DB) *MySQLVehicleRepository {
	return &MySQLVehicleRepository{db: db}
}

// Create inserts a new cached vehicle.
func (m *MySQLVehicleRepository) Create(ctx context.Context, v *cacheDomain.CachedVehicle) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO cached_vehicles (` + vehicleColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		v.ID.String(),
		v.ExternalID,
		v.Contract,
		v.Plate,
		v.DebtorTaxID,
		v.Protocol,
		v.City,
		v.Chassis,
		v.Renavam,
		v.Gravame,
		v.CreditorName,
		v.Model,
		v.StateCode,
		v.Stage,
		v.ApprehensionStatus,
		v.LastMovementAt,
		v.SyncedAt,
		v.Active,
		v.ContractHash,
		v.PlateHash,
		v.DebtorTaxIDHash,
		v.ProtocolHash,
		v.ContractPlateHash,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create cached vehicle")
	}
	return nil
}

// Update persists all mutable columns of a cached vehicle.
func (m *MySQLVehicleRepository) Update(ctx context.Context, v *cacheDomain.CachedVehicle) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE cached_vehicles
			  SET external_id = ?, contract = ?, plate = ?, debtor_tax_id = ?,
				  protocol = ?, city = ?, chassis = ?, renavam = ?, gravame = ?,
				  creditor_name = ?, model = ?, state_code = ?, stage = ?,
				  apprehension_status = ?, last_movement_at = ?, synced_at = ?,
				  active = ?, contract_hash = ?, plate_hash = ?,
				  debtor_tax_id_hash = ?, protocol_hash = ?,
				  contract_plate_hash = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		v.ExternalID,
		v.Contract,
		v.Plate,
		v.DebtorTaxID,
		v.Protocol,
		v.City,
		v.Chassis,
		v.Renavam,
		v.Gravame,
		v.CreditorName,
		v.Model,
		v.StateCode,
		v.Stage,
		v.ApprehensionStatus,
		v.LastMovementAt,
		v.SyncedAt,
		v.Active,
		v.ContractHash,
		v.PlateHash,
		v.DebtorTaxIDHash,
		v.ProtocolHash,
		v.ContractPlateHash,
		v.UpdatedAt,
		v.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update cached vehicle")
	}
	return nil
}

// GetByID retrieves a cached vehicle by its identifier.
func (m *MySQLVehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles WHERE id = ? LIMIT 1`

	v, err := scanVehicle(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cacheDomain.ErrVehicleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get cached vehicle by id")
	}
	return v, nil
}

// GetByContractPlateHash retrieves a cached vehicle by its identity hash.
// When duplicates exist the most recently synced row wins.
func (m *MySQLVehicleRepository) GetByContractPlateHash(ctx context.Context, hash string) (*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = ?
			  ORDER BY synced_at DESC
			  LIMIT 1`

	v, err := scanVehicle(querier.QueryRowContext(ctx, query, hash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cacheDomain.ErrVehicleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get cached vehicle by hash")
	}
	return v, nil
}

// ListIncomplete lists active vehicles whose enrichable columns still hold
// the sentinel or are empty.
func (m *MySQLVehicleRepository) ListIncomplete(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE active = TRUE
				AND (protocol IN ('', ?) OR city IN ('', ?) OR debtor_tax_id IN ('', ?))
			  ORDER BY synced_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, cacheDomain.Sentinel, cacheDomain.Sentinel, cacheDomain.Sentinel, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list incomplete vehicles")
	}
	return collectVehicles(rows)
}

// ListMissingHashes lists vehicles whose identity hash was never computed.
func (m *MySQLVehicleRepository) ListMissingHashes(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = '' OR contract_plate_hash IS NULL
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vehicles missing hashes")
	}
	return collectVehicles(rows)
}

// CountActive counts non-retired cached vehicles.
func (m *MySQLVehicleRepository) CountActive(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM cached_vehicles WHERE active = TRUE`).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count cached vehicles")
	}
	return count, nil
}

// CountIncomplete counts active vehicles still waiting for enrichment.
func (m *MySQLVehicleRepository) CountIncomplete(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM cached_vehicles
			  WHERE active = TRUE
				AND (protocol IN ('', ?) OR city IN ('', ?) OR debtor_tax_id IN ('', ?))`

	var count int64
	err := querier.QueryRowContext(ctx, query, cacheDomain.Sentinel, cacheDomain.Sentinel, cacheDomain.Sentinel).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count incomplete vehicles")
	}
	return count, nil
}

// LastSyncedAt returns the most recent sync timestamp, or nil for an empty cache.
func (m *MySQLVehicleRepository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	querier := database.GetTx(ctx, m.db)

	var last sql.NullTime
	err := querier.QueryRowContext(ctx, `SELECT MAX(synced_at) FROM cached_vehicles`).Scan(&last)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get last sync time")
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// RetireOlderThan deactivates records whose last movement predates the cutoff.
func (m *MySQLVehicleRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE cached_vehicles
			  SET active = FALSE, updated_at = ?
			  WHERE active = TRUE AND last_movement_at < ?`

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to retire old vehicles")
	}
	return result.RowsAffected()
}

// ListDuplicateHashes lists identity hashes shared by more than one row.
func (m *MySQLVehicleRepository) ListDuplicateHashes(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT contract_plate_hash FROM cached_vehicles
			  WHERE contract_plate_hash <> ''
			  GROUP BY contract_plate_hash
			  HAVING COUNT(*) > 1`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list duplicate hashes")
	}
	defer func() { _ = rows.Close() }()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan duplicate hash")
		}
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate duplicate hashes")
	}
	return hashes, nil
}

// ListByContractPlateHash lists all rows sharing an identity hash, most
// recently synced first.
func (m *MySQLVehicleRepository) ListByContractPlateHash(ctx context.Context, hash string) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = ?
			  ORDER BY synced_at DESC`

	rows, err := querier.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vehicles by hash")
	}
	return collectVehicles(rows)
}

// Delete removes a cached vehicle row. Used only by the duplicate collapse.
func (m *MySQLVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM cached_vehicles WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete cached vehicle")
	}
	return nil
}
