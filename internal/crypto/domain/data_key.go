package domain

import (
	"context"
	"encoding/base64"
	"fmt"
)

// DataKey is the 32-byte root key for field-level encryption.
//
// All per-purpose subkeys (cipher key, IV derivation key, lookup-hash key)
// are derived from this single key with HKDF, so rotating the data key
// rotates the whole field encryption scheme at once.
//
// The key is provided base64-encoded through the environment, either in the
// clear (development) or wrapped by a KMS key-wrapping key (production).
type DataKey struct {
	Key []byte
}

// Close zeroes the key material.
func (d *DataKey) Close() {
	Zero(d.Key)
	d.Key = nil
}

// KMSKeeper abstracts the KMS operations needed to unwrap a wrapped data key.
// *secrets.Keeper from gocloud.dev implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// LoadDataKey decodes a base64-encoded 32-byte data key.
//
// Returns ErrDataKeyNotSet when the input is empty, ErrInvalidKeyEncoding
// when the input is not valid base64, and ErrInvalidKeySize when the decoded
// key is not exactly 32 bytes.
func LoadDataKey(encoded string) (*DataKey, error) {
	if encoded == "" {
		return nil, ErrDataKeyNotSet
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	if len(key) != 32 {
		Zero(key)
		return nil, fmt.Errorf("%w: got %d bytes, want 32", ErrInvalidKeySize, len(key))
	}

	return &DataKey{Key: key}, nil
}

// UnwrapDataKey decrypts a base64-encoded KMS-wrapped data key with the keeper.
//
// The wrapped blob is produced by encrypting the raw 32-byte key with the
// key-wrapping key referenced by KMS_KEY_URI.
func UnwrapDataKey(ctx context.Context, keeper KMSKeeper, wrapped string) (*DataKey, error) {
	if wrapped == "" {
		return nil, ErrDataKeyNotSet
	}

	blob, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}

	key, err := keeper.Decrypt(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap data key: %w", err)
	}
	if len(key) != 32 {
		Zero(key)
		return nil, fmt.Errorf("%w: unwrapped key is %d bytes, want 32", ErrInvalidKeySize, len(key))
	}

	return &DataKey{Key: key}, nil
}
