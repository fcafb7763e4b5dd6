package domain

import (
	"github.com/msiav/vehicle-cache/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrDataKeyNotSet indicates no field encryption key was configured.
	//
	// The engine refuses to start without key material: persisting sensitive
	// fields in the clear is never acceptable, so a missing key is fatal.
	ErrDataKeyNotSet = errors.Wrap(errors.ErrInvalidInput, "field encryption key not set")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// The data key and all derived subkeys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidKeyEncoding indicates the configured key is not valid base64.
	ErrInvalidKeyEncoding = errors.Wrap(errors.ErrInvalidInput, "invalid key encoding")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to a wrong key, a truncated or corrupted
	// ciphertext, or a failed integrity check after decryption. The specific
	// cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
