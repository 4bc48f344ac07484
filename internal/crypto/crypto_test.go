package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor(t *testing.T) {
	t.Run("valid key size", func(t *testing.T) {
		enc, err := NewEncryptor(make([]byte, 32))
		require.NoError(t, err)
		assert.NotNil(t, enc)
	})

	t.Run("invalid key size - too short", func(t *testing.T) {
		enc, err := NewEncryptor(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
		assert.Nil(t, enc)
	})

	t.Run("invalid key size - too long", func(t *testing.T) {
		enc, err := NewEncryptor(make([]byte, 64))
		assert.ErrorIs(t, err, ErrInvalidKeySize)
		assert.Nil(t, enc)
	})
}

func TestSealOpen(t *testing.T) {
	key, err := RandomBytes(KeySize)
	require.NoError(t, err)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	sealed, err := enc.Seal("api-key-value", "device-1")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "api-key-value")

	t.Run("same context opens", func(t *testing.T) {
		plain, err := enc.Open(sealed, "device-1")
		require.NoError(t, err)
		assert.Equal(t, "api-key-value", plain)
	})

	t.Run("other context fails", func(t *testing.T) {
		_, err := enc.Open(sealed, "device-2")
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("nonce is random", func(t *testing.T) {
		again, err := enc.Seal("api-key-value", "device-1")
		require.NoError(t, err)
		assert.NotEqual(t, sealed, again)
	})
}

func TestOpenErrors(t *testing.T) {
	enc, err := NewEncryptor(make([]byte, KeySize))
	require.NoError(t, err)

	t.Run("invalid base64", func(t *testing.T) {
		_, err := enc.Open("not base64!!!", "ctx")
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := enc.Open(base64.StdEncoding.EncodeToString([]byte("short")), "ctx")
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("tampered", func(t *testing.T) {
		sealed, err := enc.Seal("value", "ctx")
		require.NoError(t, err)
		raw, _ := base64.StdEncoding.DecodeString(sealed)
		raw[len(raw)-1] ^= 0xff
		_, err = enc.Open(base64.StdEncoding.EncodeToString(raw), "ctx")
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})
}

func TestKeyring(t *testing.T) {
	master := []byte(strings.Repeat("m", 32))

	ring, err := NewKeyring(master)
	require.NoError(t, err)

	t.Run("subkeys differ", func(t *testing.T) {
		assert.Len(t, ring.SessionKey, KeySize)
		assert.NotEqual(t, master, ring.SessionKey)
		assert.NotEqual(t, ring.SessionKey, ring.fingerprintKey)
	})

	t.Run("derivation is deterministic", func(t *testing.T) {
		other, err := NewKeyring(master)
		require.NoError(t, err)
		assert.Equal(t, ring.SessionKey, other.SessionKey)
		assert.Equal(t, ring.Fingerprint("k"), other.Fingerprint("k"))

		sealed, err := ring.SealAPIKey("k", "dev")
		require.NoError(t, err)
		plain, err := other.OpenAPIKey(sealed, "dev")
		require.NoError(t, err)
		assert.Equal(t, "k", plain)
	})

	t.Run("fingerprint depends on master", func(t *testing.T) {
		other, err := NewKeyring([]byte(strings.Repeat("x", 32)))
		require.NoError(t, err)
		assert.NotEqual(t, ring.Fingerprint("k"), other.Fingerprint("k"))
		assert.Len(t, ring.Fingerprint("k"), 64)
	})

	t.Run("short master rejected", func(t *testing.T) {
		_, err := NewKeyring([]byte("short"))
		assert.Error(t, err)
	})
}

func TestRandomHelpers(t *testing.T) {
	token, err := RandomToken(128, base64.StdEncoding)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, 128)

	s, err := RandomAlphanumeric(6)
	require.NoError(t, err)
	assert.Len(t, s, 6)
	for _, r := range s {
		assert.Contains(t, alphanumeric, string(r))
	}
}
