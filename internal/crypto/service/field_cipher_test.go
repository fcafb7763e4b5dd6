package service

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/msiav/vehicle-cache/internal/crypto/domain"
)

func newTestCipher(t *testing.T) *DeterministicFieldCipher {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	c, err := NewDeterministicFieldCipher(&cryptoDomain.DataKey{Key: key})
	require.NoError(t, err)
	return c
}

func TestNewDeterministicFieldCipher(t *testing.T) {
	t.Run("nil data key", func(t *testing.T) {
		c, err := NewDeterministicFieldCipher(nil)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("wrong key size", func(t *testing.T) {
		c, err := NewDeterministicFieldCipher(&cryptoDomain.DataKey{Key: []byte("short")})
		assert.Nil(t, c)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "plate", plaintext: "ABC1D23"},
		{name: "contract number", plaintext: "000123456789"},
		{name: "tax id", plaintext: "123.456.789-00"},
		{name: "empty string", plaintext: ""},
		{name: "accented text", plaintext: "São Paulo"},
		{name: "block aligned", plaintext: strings.Repeat("x", 16)},
		{name: "long value", plaintext: strings.Repeat("long-value-", 30)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := c.Encrypt(tc.plaintext)
			require.NoError(t, err)

			// Storage contract: at least 50 hex characters, hex alphabet only.
			assert.GreaterOrEqual(t, len(ciphertext), 50)
			assert.Regexp(t, "^[0-9a-f]+$", ciphertext)
			assert.NotContains(t, ciphertext, tc.plaintext)

			plaintext, err := c.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, plaintext)
		})
	}
}

func TestFieldCipher_Deterministic(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("ABC1D23")
	require.NoError(t, err)
	second, err := c.Encrypt("ABC1D23")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	other, err := c.Encrypt("ABC1D24")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestFieldCipher_DifferentKeysDiverge(t *testing.T) {
	c1 := newTestCipher(t)
	c2 := newTestCipher(t)

	ct1, err := c1.Encrypt("ABC1D23")
	require.NoError(t, err)
	ct2, err := c2.Encrypt("ABC1D23")
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2)

	// Decrypting with the wrong key must fail the integrity check.
	plaintext, err := c2.Decrypt(ct1)
	assert.Empty(t, plaintext)
	assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
}

func TestFieldCipher_DecryptInvalidInput(t *testing.T) {
	c := newTestCipher(t)

	testCases := []struct {
		name       string
		ciphertext string
	}{
		{name: "not hex", ciphertext: "zzzz-not-hex"},
		{name: "too short", ciphertext: "deadbeef"},
		{name: "not block aligned", ciphertext: strings.Repeat("ab", 33)},
		{name: "tampered", ciphertext: func() string {
			ct, _ := c.Encrypt("ABC1D23")
			b := []byte(ct)
			if b[len(b)-1] == 'a' {
				b[len(b)-1] = 'b'
			} else {
				b[len(b)-1] = 'a'
			}
			return string(b)
		}()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plaintext, err := c.Decrypt(tc.ciphertext)
			assert.Empty(t, plaintext)
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		})
	}
}

func TestFieldCipher_LookupHash(t *testing.T) {
	c := newTestCipher(t)

	h1 := c.LookupHash("ABC1D23")
	h2 := c.LookupHash("ABC1D23")
	h3 := c.LookupHash("ABC1D24")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
	assert.Regexp(t, "^[0-9a-f]+$", h1)

	// A different key produces a different hash for the same value.
	other := newTestCipher(t)
	assert.NotEqual(t, h1, other.LookupHash("ABC1D23"))
}

func TestPKCS7(t *testing.T) {
	t.Run("pad and unpad", func(t *testing.T) {
		for size := 0; size < 33; size++ {
			data := make([]byte, size)
			padded := pkcs7Pad(data, 16)
			assert.Equal(t, 0, len(padded)%16)

			unpadded, err := pkcs7Unpad(padded, 16)
			require.NoError(t, err)
			assert.Equal(t, data, unpadded)
		}
	})

	t.Run("invalid padding", func(t *testing.T) {
		_, err := pkcs7Unpad([]byte{}, 16)
		assert.Error(t, err)

		bad := make([]byte, 16)
		bad[15] = 17
		_, err = pkcs7Unpad(bad, 16)
		assert.Error(t, err)

		bad[15] = 0
		_, err = pkcs7Unpad(bad, 16)
		assert.Error(t, err)
	})
}
