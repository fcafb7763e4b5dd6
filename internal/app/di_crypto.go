package app

import (
	"context"
	"fmt"

	cacheService "github.com/msiav/vehicle-cache/internal/cache/service"
	cryptoDomain "github.com/msiav/vehicle-cache/internal/crypto/domain"
	cryptoService "github.com/msiav/vehicle-cache/internal/crypto/service"
)

// FieldCipher returns the deterministic field cipher used for cached
// vehicle data. The data key comes either directly from the environment or
// unwrapped through the configured KMS provider.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// CryptoGate returns the fail-closed encryption gate for vehicle fields.
func (c *Container) CryptoGate() (*cacheService.CryptoGate, error) {
	var err error
	c.cryptoGateInit.Do(func() {
		c.cryptoGate, err = c.initCryptoGate()
		if err != nil {
			c.initErrors["cryptoGate"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cryptoGate"]; exists {
		return nil, storedErr
	}
	return c.cryptoGate, nil
}

// initFieldCipher loads the data key and creates the field cipher.
func (c *Container) initFieldCipher() (cryptoService.FieldCipher, error) {
	dataKey, err := c.loadDataKey()
	if err != nil {
		return nil, err
	}

	cipher, err := cryptoService.NewDeterministicFieldCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create field cipher: %w", err)
	}
	return cipher, nil
}

// loadDataKey resolves the 32-byte data key. A KMS-wrapped key takes
// precedence over a plain base64 key when both are configured.
func (c *Container) loadDataKey() (*cryptoDomain.DataKey, error) {
	if c.config.FieldEncryptionKeyWrapped != "" {
		if c.config.KMSKeyURI == "" {
			return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY_WRAPPED is set but KMS_KEY_URI is empty")
		}

		ctx := context.Background()
		keeper, err := cryptoService.NewKMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() { _ = keeper.Close() }()

		dataKey, err := cryptoDomain.UnwrapDataKey(ctx, keeper, c.config.FieldEncryptionKeyWrapped)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap field encryption key: %w", err)
		}
		return dataKey, nil
	}

	dataKey, err := cryptoDomain.LoadDataKey(c.config.FieldEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load field encryption key: %w", err)
	}
	return dataKey, nil
}

// initCryptoGate creates the crypto gate over the field cipher.
func (c *Container) initCryptoGate() (*cacheService.CryptoGate, error) {
	cipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for crypto gate: %w", err)
	}

	return cacheService.NewCryptoGate(cipher, c.Logger()), nil
}
