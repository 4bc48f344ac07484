package crypto

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// EnvMasterSecret is read when no secret is configured explicitly.
const EnvMasterSecret = "KOBOSYNC_SECRET_KEY"

// MasterSecretSource describes where the master secret may come from.
type MasterSecretSource struct {
	// Key is a base64-encoded secret. Takes priority over everything else.
	Key string

	// KeyFilePath holds the raw secret bytes. Generated when missing.
	KeyFilePath string
}

// LoadMasterSecret resolves the master secret in priority order: explicit
// key, environment variable, key file. When none exist a new random secret
// is written to the key file with owner-only permissions.
func LoadMasterSecret(src MasterSecretSource) ([]byte, error) {
	if src.Key != "" {
		return decodeSecret(src.Key)
	}

	if envKey := os.Getenv(EnvMasterSecret); envKey != "" {
		return decodeSecret(envKey)
	}

	if src.KeyFilePath == "" {
		return nil, fmt.Errorf("no master secret configured and no key file path set")
	}

	if data, err := os.ReadFile(src.KeyFilePath); err == nil {
		if len(data) < KeySize {
			return nil, fmt.Errorf("key file %s holds %d bytes, need at least %d", src.KeyFilePath, len(data), KeySize)
		}
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file %s: %w", src.KeyFilePath, err)
	}

	secret, err := RandomBytes(KeySize)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(src.KeyFilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(src.KeyFilePath, secret, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save master secret to %s: %w", src.KeyFilePath, err)
	}

	log.Printf("Generated new master secret and saved to %s", src.KeyFilePath)
	return secret, nil
}

func decodeSecret(encoded string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 master secret: %w", err)
	}
	if len(secret) < KeySize {
		return nil, fmt.Errorf("master secret must be at least %d bytes, got %d", KeySize, len(secret))
	}
	return secret, nil
}
