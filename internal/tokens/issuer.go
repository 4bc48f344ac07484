// Package tokens mints and checks the scoped access tokens embedded in
// book download and cover URLs.
package tokens

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/kobosync/internal/crypto"
	tokensRepo "github.com/mrlokans/kobosync/internal/database/tokens"
	"github.com/mrlokans/kobosync/internal/entities"
)

// ErrInvalid is returned for absent, unknown, expired or mismatched tokens.
// The cases are indistinguishable to callers.
var ErrInvalid = errors.New("invalid access token")

const (
	bookTokenBytes  = 128
	coverTokenBytes = 32
)

// Issuer mints book and cover tokens.
type Issuer struct {
	repo       *tokensRepo.Repository
	expiration time.Duration
	now        func() time.Time
}

// NewIssuer creates an issuer whose book tokens live for expiration.
func NewIssuer(repo *tokensRepo.Repository, expiration time.Duration) *Issuer {
	return &Issuer{repo: repo, expiration: expiration, now: time.Now}
}

// IssueBookToken mints a fresh download token for one book and device.
func (i *Issuer) IssueBookToken(bookID, deviceID string) (string, error) {
	value, err := crypto.RandomToken(bookTokenBytes, base64.StdEncoding)
	if err != nil {
		return "", err
	}

	token := &entities.BookToken{
		Token:     value,
		BookID:    bookID,
		DeviceID:  deviceID,
		ExpiresAt: i.now().Add(i.expiration),
	}
	if err := i.repo.CreateBookToken(token); err != nil {
		return "", fmt.Errorf("failed to store book token: %w", err)
	}
	return value, nil
}

// IssueCoverToken returns the cover token of a book and device, minting it
// on first use.
func (i *Issuer) IssueCoverToken(bookID, deviceID string) (string, error) {
	existing, err := i.repo.GetCoverTokenFor(bookID, deviceID)
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, tokensRepo.ErrNotFound) {
		return "", err
	}

	value, err := crypto.RandomToken(coverTokenBytes, base64.URLEncoding)
	if err != nil {
		return "", err
	}

	stored, err := i.repo.CreateCoverToken(&entities.CoverToken{
		Token:     value,
		BookID:    bookID,
		DeviceID:  deviceID,
		CreatedAt: i.now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store cover token: %w", err)
	}
	return stored.Token, nil
}

// ValidateBookToken returns the device a book token was issued to.
func (i *Issuer) ValidateBookToken(bookID, value string) (string, error) {
	if value == "" {
		return "", ErrInvalid
	}

	token, err := i.repo.GetBookToken(value)
	if errors.Is(err, tokensRepo.ErrNotFound) {
		return "", ErrInvalid
	}
	if err != nil {
		return "", err
	}

	if token.BookID != bookID || token.IsExpired(i.now()) {
		return "", ErrInvalid
	}
	return token.DeviceID, nil
}

// ValidateCoverToken returns the device a cover token was issued to.
func (i *Issuer) ValidateCoverToken(bookID, value string) (string, error) {
	if value == "" {
		return "", ErrInvalid
	}

	token, err := i.repo.GetCoverToken(value)
	if errors.Is(err, tokensRepo.ErrNotFound) {
		return "", ErrInvalid
	}
	if err != nil {
		return "", err
	}

	if token.BookID != bookID {
		return "", ErrInvalid
	}
	return token.DeviceID, nil
}

// PurgeExpired deletes book tokens that have expired.
func (i *Issuer) PurgeExpired() (int64, error) {
	return i.repo.DeleteExpiredBookTokens(i.now())
}

// RevokeForBook deletes every book and cover token issued for a book.
func (i *Issuer) RevokeForBook(bookID string) error {
	return i.repo.DeleteForBook(bookID)
}
