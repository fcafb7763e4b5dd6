package domain

import (
	"time"
)

// Notification is one repossession contract notification from the period
// search, flattened from the provider's varying payload shapes.
type Notification struct {
	// ExternalID is the provider's notification identifier, when present.
	ExternalID *int64
	// Contract is the contract number.
	Contract string
	// Plate is the vehicle license plate, possibly empty.
	Plate string
	// CreditorName is the financial institution holding the contract.
	CreditorName string
	// Model is the vehicle model description, possibly empty.
	Model string
	// StateCode is the two-letter federative unit (UF), possibly empty.
	StateCode string
	// DebtorTaxID is the debtor CPF, possibly empty.
	DebtorTaxID string
	// DebtorAddress is the raw debtor address line, possibly empty.
	DebtorAddress string
	// Protocol is the notification protocol number, possibly empty.
	Protocol string
	// Stage is the contract workflow stage reported by the provider.
	Stage string
	// ApprehensionStatus is the apprehension status reported by the provider.
	ApprehensionStatus string
	// LastMovementAt is the most recent contract movement.
	LastMovementAt time.Time
}

// VehicleDetail is the per-plate detail payload. Every field is optional;
// nil means the provider did not include it, and only present fields may
// overwrite previously known values.
type VehicleDetail struct {
	// Protocol is the notification protocol number.
	Protocol *string
	// DebtorTaxID is the debtor CPF.
	DebtorTaxID *string
	// Address is the raw address line used for city extraction, taken from
	// the creditor when present and from the debtor otherwise.
	Address *string
	// Chassis is the vehicle chassis number.
	Chassis *string
	// Renavam is the national vehicle registry number.
	Renavam *string
	// Gravame is the lien number.
	Gravame *string
}
