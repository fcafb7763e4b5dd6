// Package service provides the encryption boundary between plaintext upstream
// data and the persisted cache.
package service

import (
	"fmt"
	"log/slog"

	"github.com/msiav/vehicle-cache/internal/cache/domain"
	cryptoService "github.com/msiav/vehicle-cache/internal/crypto/service"
	"github.com/msiav/vehicle-cache/internal/errors"
)

// minEncryptedLen is the minimum hex length a stored ciphertext may have.
// Values shorter than this are treated as plaintext by the shape check.
const minEncryptedLen = 50

// CryptoGate enforces the encryption contract on sensitive record fields.
//
// Writes fail closed: a field that does not come out of the cipher looking
// encrypted aborts the whole operation, so plaintext can never reach storage.
// Reads fail open: a value that cannot be decrypted is returned as stored,
// with a warning, so one corrupt field does not take down read paths.
type CryptoGate struct {
	cipher cryptoService.FieldCipher
	logger *slog.Logger
}

// NewCryptoGate creates a CryptoGate backed by the given field cipher.
func NewCryptoGate(cipher cryptoService.FieldCipher, logger *slog.Logger) *CryptoGate {
	return &CryptoGate{cipher: cipher, logger: logger}
}

// EncryptField encrypts a single sensitive value. Blank values and the
// sentinel pass through unchanged. Any cipher failure, or output that fails
// the encrypted-shape check, returns ErrEncryptionIntegrity.
func (g *CryptoGate) EncryptField(value string) (string, error) {
	if domain.IsBlank(value) {
		return value, nil
	}

	ciphertext, err := g.cipher.Encrypt(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncryptionIntegrity, err)
	}
	if !LooksEncrypted(ciphertext) {
		return "", domain.ErrFieldNotEncrypted
	}

	return ciphertext, nil
}

// DecryptField decrypts a single stored value. Blank values, the sentinel,
// and values that do not look encrypted are returned unchanged. Decryption
// failures on encrypted-looking input are logged and the stored value is
// returned as-is.
func (g *CryptoGate) DecryptField(value string) string {
	if domain.IsBlank(value) || !LooksEncrypted(value) {
		return value
	}

	plaintext, err := g.cipher.Decrypt(value)
	if err != nil {
		g.logger.Warn("failed to decrypt stored field, returning raw value", "error", err)
		return value
	}

	return plaintext
}

// LooksEncrypted reports whether a stored value has the shape of a
// ciphertext produced by the field cipher: at least minEncryptedLen
// characters, all from the lowercase hex alphabet.
func LooksEncrypted(value string) bool {
	if len(value) < minEncryptedLen {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// EncryptVehicle encrypts all sensitive fields of a record in place and
// populates its lookup hashes from the plaintexts. The plate is normalized
// before hashing and encryption. Returns an error on the first field that
// fails the encryption contract, leaving the caller to abort.
func (g *CryptoGate) EncryptVehicle(v *domain.CachedVehicle) error {
	v.Plate = domain.NormalizePlate(v.Plate)

	// Hashes are computed over plaintexts, before the fields are replaced by
	// ciphertext.
	v.ContractHash = g.hashField(v.Contract)
	v.PlateHash = g.hashField(v.Plate)
	v.DebtorTaxIDHash = g.hashField(v.DebtorTaxID)
	v.ProtocolHash = g.hashField(v.Protocol)
	if !domain.IsBlank(v.Contract) && !domain.IsBlank(v.Plate) {
		v.ContractPlateHash = g.cipher.LookupHash(domain.DedupKey(v.Contract, v.Plate))
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"contract", &v.Contract},
		{"plate", &v.Plate},
		{"debtor_tax_id", &v.DebtorTaxID},
		{"protocol", &v.Protocol},
		{"city", &v.City},
		{"chassis", &v.Chassis},
		{"renavam", &v.Renavam},
		{"gravame", &v.Gravame},
	}
	for _, f := range fields {
		encrypted, err := g.EncryptField(*f.value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", f.name, err)
		}
		*f.value = encrypted
	}

	return nil
}

// DecryptVehicle decrypts all sensitive fields of a record in place.
// Individual failures leave the stored value untouched.
func (g *CryptoGate) DecryptVehicle(v *domain.CachedVehicle) {
	v.Contract = g.DecryptField(v.Contract)
	v.Plate = g.DecryptField(v.Plate)
	v.DebtorTaxID = g.DecryptField(v.DebtorTaxID)
	v.Protocol = g.DecryptField(v.Protocol)
	v.City = g.DecryptField(v.City)
	v.Chassis = g.DecryptField(v.Chassis)
	v.Renavam = g.DecryptField(v.Renavam)
	v.Gravame = g.DecryptField(v.Gravame)
}

// LookupHash exposes the cipher's keyed hash for repository queries.
func (g *CryptoGate) LookupHash(value string) string {
	return g.cipher.LookupHash(value)
}

// ContractPlateHash builds the lookup hash for a contract and plate pair.
func (g *CryptoGate) ContractPlateHash(contract, plate string) string {
	return g.cipher.LookupHash(domain.DedupKey(contract, plate))
}

func (g *CryptoGate) hashField(value string) string {
	if domain.IsBlank(value) {
		return ""
	}
	return g.cipher.LookupHash(value)
}
