// Package domain defines the core domain models for the vehicle data cache.
// Cached records mirror the upstream repossession contract feed; sensitive
// fields are stored encrypted and paired with keyed lookup hashes so the
// cache can be searched without decryption.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel marks a field whose value is unknown or not yet enriched.
// It is stored as-is and never encrypted.
const Sentinel = "N/A"

// Workflow states carried by cached records. Values are kept verbatim from
// the upstream feed, which reports them in Portuguese.
const (
	// StageInitial is the default contract stage for newly received records.
	StageInitial = "A iniciar"
	// StatusAwaitingScheduling is the default apprehension status.
	StatusAwaitingScheduling = "Aguardando Agendamento da Diligência"
	// StatusScheduled marks records whose apprehension diligence has been scheduled.
	StatusScheduled = "DILIGENCIA AGENDADA"
)

// CachedVehicle is one cached repossession contract keyed by the
// contract|plate pair.
//
// Encrypted fields (Contract, Plate, DebtorTaxID, Protocol, City, Chassis,
// Renavam, Gravame) hold either hex ciphertext or the Sentinel. The *Hash
// fields hold keyed hashes of the corresponding plaintexts and support
// equality lookups. Operational fields (Stage, ApprehensionStatus,
// CreditorName, Model, StateCode, timestamps) stay in the clear.
type CachedVehicle struct {
	// ID is the unique identifier of the cached record.
	ID uuid.UUID
	// ExternalID is the upstream notification identifier, when known.
	ExternalID *int64
	// Contract is the encrypted contract number.
	Contract string
	// Plate is the encrypted license plate (normalized upper-case before encryption).
	Plate string
	// DebtorTaxID is the encrypted debtor CPF.
	DebtorTaxID string
	// Protocol is the encrypted notification protocol number.
	Protocol string
	// City is the encrypted debtor city, extracted from the address.
	City string
	// Chassis is the encrypted vehicle chassis number, when provided.
	Chassis string
	// Renavam is the encrypted national vehicle registry number, when provided.
	Renavam string
	// Gravame is the encrypted lien number, when provided.
	Gravame string
	// CreditorName is the financial institution holding the contract.
	CreditorName string
	// Model is the vehicle model description as reported upstream.
	Model string
	// StateCode is the two-letter federative unit (UF) of the contract.
	StateCode string
	// Stage is the contract workflow stage.
	Stage string
	// ApprehensionStatus is the apprehension workflow status.
	ApprehensionStatus string
	// LastMovementAt is the most recent movement reported upstream.
	LastMovementAt time.Time
	// SyncedAt is when this record last converged with the upstream feed.
	SyncedAt time.Time
	// Active is false for records retired by the retention cleanup.
	Active bool

	// ContractHash is the lookup hash of the contract number.
	ContractHash string
	// PlateHash is the lookup hash of the normalized plate.
	PlateHash string
	// DebtorTaxIDHash is the lookup hash of the debtor CPF.
	DebtorTaxIDHash string
	// ProtocolHash is the lookup hash of the protocol number.
	ProtocolHash string
	// ContractPlateHash is the lookup hash of the combined "contract|plate" key.
	ContractPlateHash string

	// CreatedAt is when the record was first cached.
	CreatedAt time.Time
	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// DedupKey builds the plaintext identity key for a contract and plate pair.
func DedupKey(contract, plate string) string {
	return contract + "|" + NormalizePlate(plate)
}

// NormalizePlate upper-cases and trims a license plate for hashing and
// encryption. The sentinel passes through unchanged.
func NormalizePlate(plate string) string {
	trimmed := strings.TrimSpace(plate)
	if trimmed == "" || trimmed == Sentinel {
		return trimmed
	}
	return strings.ToUpper(trimmed)
}

// IsBlank reports whether a field value is empty or the sentinel.
func IsBlank(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || trimmed == Sentinel
}
