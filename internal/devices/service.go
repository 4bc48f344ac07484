// Package devices implements the device identity store: authentication of
// e-readers, refresh of their sessions, and the link relation between a
// device identity and a Prosa API key.
package devices

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/crypto"
	devicesRepo "github.com/mrlokans/kobosync/internal/database/devices"
	"github.com/mrlokans/kobosync/internal/entities"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrAlreadyLinked   = errors.New("device already linked")
	ErrAlreadyUnlinked = errors.New("device already unlinked")
	ErrMissingAPIKey   = errors.New("api key must be provided")
	ErrInvalidAPIKey   = errors.New("api key is invalid")
)

// keyPrefixLength is how much of an API key may appear in audit records.
const keyPrefixLength = 4

// Session is the token pair handed to a device.
type Session struct {
	DeviceID     string
	AccessToken  string
	RefreshToken string
}

// Options configures the session lifetimes.
type Options struct {
	TokenDuration        time.Duration
	RefreshTokenDuration time.Duration
}

// Service manages device identities and their links.
type Service struct {
	repo      *devicesRepo.Repository
	keyring   *crypto.Keyring
	sessions  *auth.SessionTokens
	validator *KeyValidator
	audit     *audit.Service
	opts      Options
	now       func() time.Time
}

// NewService creates a device service. auditService may be nil.
func NewService(
	repo *devicesRepo.Repository,
	keyring *crypto.Keyring,
	sessions *auth.SessionTokens,
	validator *KeyValidator,
	auditService *audit.Service,
	opts Options,
) *Service {
	return &Service{
		repo:      repo,
		keyring:   keyring,
		sessions:  sessions,
		validator: validator,
		audit:     auditService,
		opts:      opts,
		now:       time.Now,
	}
}

// Authenticate derives the device identity and issues a token pair.
// Unknown identities are recorded as unlinked.
func (s *Service) Authenticate(deviceID, userKey string, req audit.Request) (*Session, error) {
	identity := Identity(deviceID, userKey)

	created, err := s.repo.EnsureKnown(identity, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record device: %w", err)
	}
	if created {
		log.Printf("New device %s registered as unlinked", identity)
		if s.audit != nil {
			s.audit.LogDeviceSeen(identity, req)
		}
	}

	return s.issue(identity)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(refreshToken string, req audit.Request) (*Session, error) {
	identity, err := s.sessions.Verify(refreshToken)
	if err != nil {
		if s.audit != nil {
			s.audit.LogRefreshFailure(req, err)
		}
		return nil, err
	}
	return s.issue(identity)
}

// IssueAccessToken mints a session token for an identity without touching
// the store. It backs the OAuth token endpoint.
func (s *Service) IssueAccessToken(identity string) (string, error) {
	return s.sessions.Issue(identity, s.opts.TokenDuration)
}

func (s *Service) issue(identity string) (*Session, error) {
	access, err := s.sessions.Issue(identity, s.opts.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.sessions.Issue(identity, s.opts.RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &Session{DeviceID: identity, AccessToken: access, RefreshToken: refresh}, nil
}

// Link binds an unlinked device to an API key.
func (s *Service) Link(deviceID, apiKey string, req audit.Request) error {
	if err := s.validator.Validate(apiKey); err != nil {
		return err
	}

	sealed, err := s.keyring.SealAPIKey(apiKey, deviceID)
	if err != nil {
		return fmt.Errorf("failed to seal api key: %w", err)
	}

	err = translate(s.repo.Link(&entities.LinkedDevice{
		DeviceID:       deviceID,
		APIKey:         sealed,
		KeyFingerprint: s.keyring.Fingerprint(apiKey),
		CreatedAt:      s.now(),
	}))
	s.logLinkChange(audit.ActionDeviceLink, deviceID, apiKey, req, err)
	return err
}

// Unlink removes the link of a device. Only the key the device was linked
// with may unlink it.
func (s *Service) Unlink(deviceID, apiKey string, req audit.Request) error {
	if err := s.validator.Validate(apiKey); err != nil {
		return err
	}

	err := translate(s.repo.Unlink(deviceID, s.keyring.Fingerprint(apiKey), s.now()))
	s.logLinkChange(audit.ActionDeviceUnlink, deviceID, apiKey, req, err)
	return err
}

// ListLinked returns the devices linked with apiKey.
func (s *Service) ListLinked(apiKey string) ([]string, error) {
	if err := s.validator.Validate(apiKey); err != nil {
		return nil, err
	}
	return s.repo.ListLinkedByFingerprint(s.keyring.Fingerprint(apiKey))
}

// ListUnlinked returns every known device without a link.
func (s *Service) ListUnlinked() ([]entities.UnlinkedDevice, error) {
	return s.repo.ListUnlinked()
}

// LinkedKey returns the API key a device is linked with, or
// auth.ErrNotLinked. It is queried on every authorized request.
func (s *Service) LinkedKey(deviceID string) (string, error) {
	device, err := s.repo.GetLinked(deviceID)
	if errors.Is(err, devicesRepo.ErrNotFound) {
		return "", auth.ErrNotLinked
	}
	if err != nil {
		return "", fmt.Errorf("failed to load link: %w", err)
	}

	apiKey, err := s.keyring.OpenAPIKey(device.APIKey, deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to open api key of %s: %w", deviceID, err)
	}
	return apiKey, nil
}

func (s *Service) logLinkChange(action, deviceID, apiKey string, req audit.Request, err error) {
	if s.audit == nil {
		return
	}
	s.audit.LogLinkChange(action, deviceID, keyPrefix(apiKey), req, err)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, devicesRepo.ErrNotFound):
		return ErrDeviceNotFound
	case errors.Is(err, devicesRepo.ErrAlreadyLinked):
		return ErrAlreadyLinked
	case errors.Is(err, devicesRepo.ErrAlreadyUnlinked):
		return ErrAlreadyUnlinked
	default:
		return err
	}
}

func keyPrefix(apiKey string) string {
	if len(apiKey) <= keyPrefixLength {
		return ""
	}
	return apiKey[:keyPrefixLength]
}
