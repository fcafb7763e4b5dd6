package domain

import (
	"github.com/msiav/vehicle-cache/internal/errors"
)

// Cache domain error definitions.
var (
	// ErrVehicleNotFound indicates the requested cached vehicle does not exist.
	ErrVehicleNotFound = errors.Wrap(errors.ErrNotFound, "cached vehicle not found")

	// ErrRecordNotFound indicates the requested apprehension record does not exist.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "apprehension record not found")

	// ErrFieldNotEncrypted indicates a sensitive field failed the encrypted-shape
	// check after encryption. The record must not be persisted.
	ErrFieldNotEncrypted = errors.Wrap(errors.ErrEncryptionIntegrity, "field not encrypted")
)
