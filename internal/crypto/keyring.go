package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info labels. Changing a label changes the derived key.
const (
	infoSession     = "kobosync session v1"
	infoSeal        = "kobosync api-key seal v1"
	infoFingerprint = "kobosync api-key fingerprint v1"
)

// Keyring holds the subkeys derived from the master secret.
type Keyring struct {
	// SessionKey signs device session and refresh JWTs.
	SessionKey []byte

	sealer         *Encryptor
	fingerprintKey []byte
}

// NewKeyring derives all subkeys from master.
func NewKeyring(master []byte) (*Keyring, error) {
	if len(master) < KeySize {
		return nil, fmt.Errorf("master secret must be at least %d bytes, got %d", KeySize, len(master))
	}

	sessionKey, err := derive(master, infoSession)
	if err != nil {
		return nil, err
	}
	sealKey, err := derive(master, infoSeal)
	if err != nil {
		return nil, err
	}
	fingerprintKey, err := derive(master, infoFingerprint)
	if err != nil {
		return nil, err
	}

	sealer, err := NewEncryptor(sealKey)
	if err != nil {
		return nil, err
	}

	return &Keyring{
		SessionKey:     sessionKey,
		sealer:         sealer,
		fingerprintKey: fingerprintKey,
	}, nil
}

// SealAPIKey encrypts an API key for storage on the device's row.
func (k *Keyring) SealAPIKey(apiKey, deviceID string) (string, error) {
	return k.sealer.Seal(apiKey, deviceID)
}

// OpenAPIKey decrypts an API key sealed for deviceID.
func (k *Keyring) OpenAPIKey(sealed, deviceID string) (string, error) {
	return k.sealer.Open(sealed, deviceID)
}

// Fingerprint returns a stable keyed hash of an API key, hex encoded.
// It allows lookups by key without storing the key in the clear.
func (k *Keyring) Fingerprint(apiKey string) string {
	mac := hmac.New(sha256.New, k.fingerprintKey)
	mac.Write([]byte(apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

func derive(master []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %q key: %w", info, err)
	}
	return key, nil
}
