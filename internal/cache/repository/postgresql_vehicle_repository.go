// Package repository implements persistence for the vehicle data cache.
// Repositories support both PostgreSQL and MySQL; sensitive columns store
// ciphertext or the sentinel and are matched through their hash columns.
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

const vehicleColumns = `id, external_id, contract, plate, debtor_tax_id, protocol, city,
	chassis, renavam, gravame, creditor_name, model, state_code, stage,
	apprehension_status, last_movement_at, synced_at, active, contract_hash,
	plate_hash, debtor_tax_id_hash, protocol_hash, contract_plate_hash,
	created_at, updated_at`

// PostgreSQLVehicleRepository implements CachedVehicle persistence for PostgreSQL.
type PostgreSQLVehicleRepository struct {
	db *sql.DB
}

// NewPostgreSQLVehicleRepository creates a new PostgreSQL vehicle repository instance.
func NewPostgreSQLVehicleRepository(db *sql.DB) *PostgreSQLVehicleRepository {
	return &PostgreSQLVehicleRepository{db: db}
}

// Create inserts a new cached vehicle.
func (p *PostgreSQLVehicleRepository) Create(ctx context.Context, v *cacheDomain.CachedVehicle) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO cached_vehicles (` + vehicleColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := querier.ExecContext(
		ctx,
		query,
		v.ID,
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
func (p *PostgreSQLVehicleRepository) Update(ctx context.Context, v *cacheDomain.CachedVehicle) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE cached_vehicles
			  SET external_id = $1, contract = $2, plate = $3, debtor_tax_id = $4,
				  protocol = $5, city = $6, chassis = $7, renavam = $8, gravame = $9,
				  creditor_name = $10, model = $11, state_code = $12, stage = $13,
				  apprehension_status = $14, last_movement_at = $15, synced_at = $16,
				  active = $17, contract_hash = $18, plate_hash = $19,
				  debtor_tax_id_hash = $20, protocol_hash = $21,
				  contract_plate_hash = $22, updated_at = $23
			  WHERE id = $24`

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
		v.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update cached vehicle")
	}
	return nil
}

// GetByID retrieves a cached vehicle by its identifier.
func (p *PostgreSQLVehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles WHERE id = $1 LIMIT 1`

	v, err := scanVehicle(querier.QueryRowContext(ctx, query, id))
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
func (p *PostgreSQLVehicleRepository) GetByContractPlateHash(ctx context.Context, hash string) (*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = $1
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
func (p *PostgreSQLVehicleRepository) ListIncomplete(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE active = TRUE
				AND (protocol IN ('', $1) OR city IN ('', $1) OR debtor_tax_id IN ('', $1))
			  ORDER BY synced_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, cacheDomain.Sentinel, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list incomplete vehicles")
	}
	return collectVehicles(rows)
}

// ListMissingHashes lists vehicles whose identity hash was never computed,
// used by the startup hash backfill.
func (p *PostgreSQLVehicleRepository) ListMissingHashes(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = '' OR contract_plate_hash IS NULL
			  LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vehicles missing hashes")
	}
	return collectVehicles(rows)
}

// CountActive counts non-retired cached vehicles.
func (p *PostgreSQLVehicleRepository) CountActive(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM cached_vehicles WHERE active = TRUE`).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count cached vehicles")
	}
	return count, nil
}

// CountIncomplete counts active vehicles still waiting for enrichment.
func (p *PostgreSQLVehicleRepository) CountIncomplete(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM cached_vehicles
			  WHERE active = TRUE
				AND (protocol IN ('', $1) OR city IN ('', $1) OR debtor_tax_id IN ('', $1))`

	var count int64
	err := querier.QueryRowContext(ctx, query, cacheDomain.Sentinel).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count incomplete vehicles")
	}
	return count, nil
}

// LastSyncedAt returns the most recent sync timestamp, or nil for an empty cache.
func (p *PostgreSQLVehicleRepository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	querier := database.GetTx(ctx, p.db)

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
func (p *PostgreSQLVehicleRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE cached_vehicles
			  SET active = FALSE, updated_at = $1
			  WHERE active = TRUE AND last_movement_at < $2`

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to retire old vehicles")
	}
	return result.RowsAffected()
}

// ListDuplicateHashes lists identity hashes shared by more than one row.
func (p *PostgreSQLVehicleRepository) ListDuplicateHashes(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

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
func (p *PostgreSQLVehicleRepository) ListByContractPlateHash(ctx context.Context, hash string) ([]*cacheDomain.CachedVehicle, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vehicleColumns + ` FROM cached_vehicles
			  WHERE contract_plate_hash = $1
			  ORDER BY synced_at DESC`

	rows, err := querier.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vehicles by hash")
	}
	return collectVehicles(rows)
}

// Delete removes a cached vehicle row. Used only by the duplicate collapse.
func (p *PostgreSQLVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM cached_vehicles WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete cached vehicle")
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*cacheDomain.CachedVehicle, error) {
	var v cacheDomain.CachedVehicle
	err := row.Scan(
		&v.ID,
		&v.ExternalID,
		&v.Contract,
		&v.Plate,
		&v.DebtorTaxID,
		&v.Protocol,
		&v.City,
		&v.Chassis,
		&v.Renavam,
		&v.Gravame,
		&v.CreditorName,
		&v.Model,
		&v.StateCode,
		&v.Stage,
		&v.ApprehensionStatus,
		&v.LastMovementAt,
		&v.SyncedAt,
		&v.Active,
		&v.ContractHash,
		&v.PlateHash,
		&v.DebtorTaxIDHash,
		&v.ProtocolHash,
		&v.ContractPlateHash,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVehicles(rows *sql.Rows) ([]*cacheDomain.CachedVehicle, error) {
	defer func() { _ = rows.Close() }()

	var vehicles []*cacheDomain.CachedVehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan cached vehicle")
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate cached vehicles")
	}
	return vehicles, nil
}
