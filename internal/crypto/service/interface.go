// Package service provides cryptographic services for field-level encryption.
// Implements a deterministic AES-256-CBC cipher with HMAC-derived IVs and
// keyed lookup hashes over a single HKDF-expanded data key.
package service

// FieldCipher defines the interface for encrypting individual record fields.
type FieldCipher interface {
	// Encrypt encrypts plaintext and returns a hex-encoded ciphertext.
	// Equal plaintexts produce equal ciphertexts under the same key.
	Encrypt(plaintext string) (string, error)

	// Decrypt reverses Encrypt and verifies integrity of the recovered value.
	Decrypt(ciphertext string) (string, error)

	// LookupHash returns a keyed hash of value for equality search without
	// decryption.
	LookupHash(value string) string
}
