package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/config"
	"github.com/mrlokans/kobosync/internal/crypto"
	"github.com/mrlokans/kobosync/internal/database"
	auditRepo "github.com/mrlokans/kobosync/internal/database/audit"
	devicesRepo "github.com/mrlokans/kobosync/internal/database/devices"
	tokensRepo "github.com/mrlokans/kobosync/internal/database/tokens"
	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/tokens"
)

// Stores holds the persistent services shared by the server and the CLI.
type Stores struct {
	DB       *database.Database
	Keyring  *crypto.Keyring
	Sessions *auth.SessionTokens
	Audit    *audit.Service
	Devices  *devices.Service
	Tokens   *tokens.Issuer
}

// OpenStores opens the database, loads the master secret and builds the
// services on top of them. The caller must Close the result.
func OpenStores(cfg *config.Config) (*Stores, error) {
	master, err := crypto.LoadMasterSecret(crypto.MasterSecretSource{
		Key:         cfg.Secrets.Key,
		KeyFilePath: cfg.Secrets.KeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("load master secret: %w", err)
	}

	keyring, err := crypto.NewKeyring(master)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}

	validator, err := devices.NewKeyValidator(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("api key validator: %w", err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Printf("Database initialized at %s", cfg.Database.Path)

	sessions := auth.NewSessionTokens(keyring.SessionKey)
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	deviceService := devices.NewService(
		devicesRepo.NewRepository(db.DB),
		keyring,
		sessions,
		validator,
		auditService,
		devices.Options{
			TokenDuration:        cfg.Auth.TokenDuration,
			RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
		},
	)

	return &Stores{
		DB:       db,
		Keyring:  keyring,
		Sessions: sessions,
		Audit:    auditService,
		Devices:  deviceService,
		Tokens:   tokens.NewIssuer(tokensRepo.NewRepository(db.DB), cfg.Books.TokenExpiration),
	}, nil
}

// Close flushes pending audit events and closes the database.
func (s *Stores) Close() error {
	s.Audit.Wait()
	return s.DB.Close()
}
