package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/msiav/vehicle-cache/internal/crypto/domain"
)

// DeterministicFieldCipher implements FieldCipher with deterministic
// AES-256-CBC.
//
// The stored columns are compared for equality in their encrypted form, so
// the same plaintext must always produce the same ciphertext under the same
// key. Determinism comes from deriving the IV from the plaintext itself with
// HMAC-SHA256 (an SIV-style construction) instead of generating it randomly.
// The derived IV doubles as an integrity check: Decrypt recomputes it from
// the recovered plaintext and rejects the value when it does not match.
//
// Output format is lowercase hex of iv || ciphertext. With a 16-byte IV and
// PKCS#7 padding the output is always at least 64 hex characters, which
// satisfies the minimum-length contract of the storage format.
//
// Three independent subkeys are derived from the 32-byte data key with
// HKDF-SHA256: the AES key, the IV derivation key, and the lookup-hash key.
//
// Thread safety: the cipher is stateless after construction and safe for
// concurrent use.
type DeterministicFieldCipher struct {
	block   cipher.Block
	ivKey   []byte
	hashKey []byte
}

// NewDeterministicFieldCipher derives the subkeys from the data key and
// initializes the AES block cipher.
func NewDeterministicFieldCipher(dataKey *cryptoDomain.DataKey) (*DeterministicFieldCipher, error) {
	if dataKey == nil || len(dataKey.Key) != 32 {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	encKey, err := deriveSubkey(dataKey.Key, "field-cipher-v1")
	if err != nil {
		return nil, err
	}
	ivKey, err := deriveSubkey(dataKey.Key, "field-iv-v1")
	if err != nil {
		return nil, err
	}
	hashKey, err := deriveSubkey(dataKey.Key, "field-lookup-hash-v1")
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	cryptoDomain.Zero(encKey)

	return &DeterministicFieldCipher{block: block, ivKey: ivKey, hashKey: hashKey}, nil
}

// deriveSubkey derives a 32-byte purpose-bound subkey with HKDF-SHA256.
func deriveSubkey(key []byte, purpose string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, key, nil, []byte(purpose))

	subkey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, subkey); err != nil {
		return nil, fmt.Errorf("failed to derive %s subkey: %w", purpose, err)
	}

	return subkey, nil
}

// Encrypt encrypts plaintext and returns hex(iv || ciphertext).
func (c *DeterministicFieldCipher) Encrypt(plaintext string) (string, error) {
	iv := c.deriveIV([]byte(plaintext))
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, padded)

	out := make([]byte, 0, len(iv)+len(ct))
	out = append(out, iv...)
	out = append(out, ct...)
	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt and verifies the plaintext against the embedded IV.
func (c *DeterministicFieldCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ct)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	// The IV is a MAC over the plaintext; a mismatch means a wrong key or a
	// tampered value.
	if !hmac.Equal(iv, c.deriveIV(plaintext)) {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// LookupHash returns a keyed hash of value, as lowercase hex. Equal values
// always produce equal hashes, so the hash columns support equality search
// without decryption.
func (c *DeterministicFieldCipher) LookupHash(value string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *DeterministicFieldCipher) deriveIV(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, c.ivKey)
	mac.Write(plaintext)
	return mac.Sum(nil)[:aes.BlockSize]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if !bytes.Equal(data[len(data)-padding:], bytes.Repeat([]byte{byte(padding)}, padding)) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return data[:len(data)-padding], nil
}
