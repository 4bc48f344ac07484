// Package library builds the device view of books and handles book removal
// requested by a device.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/mrlokans/kobosync/internal/crypto"
	"github.com/mrlokans/kobosync/internal/prosa"
)

// Backend is the part of the Prosa client the library needs.
type Backend interface {
	GetFileMetadata(ctx context.Context, apiKey, bookID string) (*prosa.FileMetadata, error)
	GetMetadata(ctx context.Context, apiKey, bookID string) (*prosa.Metadata, error)
	DeleteBook(ctx context.Context, apiKey, bookID string) error
}

// TokenIssuer mints the download tokens embedded in metadata.
type TokenIssuer interface {
	IssueBookToken(bookID, deviceID string) (string, error)
	IssueCoverToken(bookID, deviceID string) (string, error)
}

// ETagStore drops the annotation entity tag of a removed book.
type ETagStore interface {
	Forget(bookID string) error
}

// CoverCache drops cached renditions of a removed book.
type CoverCache interface {
	InvalidateCover(bookID string) error
}

// Auditor records book removals. Optional.
type Auditor interface {
	LogBookDelete(deviceID, bookID string)
}

type Service struct {
	backend Backend
	tokens  TokenIssuer
	etags   ETagStore
	covers  CoverCache
	auditor Auditor
}

func NewService(backend Backend, tokens TokenIssuer, etags ETagStore, covers CoverCache, auditor Auditor) *Service {
	return &Service{
		backend: backend,
		tokens:  tokens,
		etags:   etags,
		covers:  covers,
		auditor: auditor,
	}
}

// Metadata builds the device metadata of a book with fresh download and
// cover tokens bound to deviceID. serverURL is the scheme and host devices
// use to reach this server.
func (s *Service) Metadata(ctx context.Context, apiKey, deviceID, bookID, serverURL string) (*BookMetadata, error) {
	file, err := s.backend.GetFileMetadata(ctx, apiKey, bookID)
	if err != nil {
		return nil, err
	}

	meta, err := s.backend.GetMetadata(ctx, apiKey, bookID)
	if errors.Is(err, prosa.ErrNotFound) {
		meta = &prosa.Metadata{}
	} else if err != nil {
		return nil, err
	}

	bookToken, err := s.tokens.IssueBookToken(bookID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("issue book token: %w", err)
	}
	coverToken, err := s.tokens.IssueCoverToken(bookID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("issue cover token: %w", err)
	}

	buster, err := crypto.RandomAlphanumeric(coverCacheBuster)
	if err != nil {
		return nil, err
	}

	downloadURL := fmt.Sprintf("%s/books/%s?token=%s", serverURL, url.PathEscape(bookID), url.QueryEscape(bookToken))
	coverImageID := fmt.Sprintf("%s[[%s]]?token=%s", bookID, buster, coverToken)

	metadata := NewBookMetadata(bookID, *meta, newDownloadURL(downloadURL, file.FileSize), coverImageID)
	return &metadata, nil
}

// Delete removes a book from the account. A book Prosa no longer knows
// counts as deleted. Download tokens are left to expire.
func (s *Service) Delete(ctx context.Context, apiKey, deviceID, bookID string) error {
	if err := s.backend.DeleteBook(ctx, apiKey, bookID); err != nil && !errors.Is(err, prosa.ErrNotFound) {
		return err
	}

	if err := s.etags.Forget(bookID); err != nil {
		return fmt.Errorf("forget etag: %w", err)
	}
	if s.covers != nil {
		if err := s.covers.InvalidateCover(bookID); err != nil {
			log.Printf("Failed to drop cached covers of %s: %v", bookID, err)
		}
	}
	if s.auditor != nil {
		s.auditor.LogBookDelete(deviceID, bookID)
	}
	return nil
}
