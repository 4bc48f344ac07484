// Package shelves maps device tags onto Prosa shelves.
package shelves

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/kobosync/internal/prosa"
)

// ErrMissingName is returned when a tag is created or renamed without a name.
var ErrMissingName = errors.New("shelf name must be provided")

// Backend is the part of the Prosa client shelves need.
type Backend interface {
	CreateShelf(ctx context.Context, apiKey, name string, ownerID *string) (string, error)
	GetShelf(ctx context.Context, apiKey, shelfID string) (*prosa.ShelfMetadata, error)
	RenameShelf(ctx context.Context, apiKey, shelfID, name string) error
	DeleteShelf(ctx context.Context, apiKey, shelfID string) error
	AddBookToShelf(ctx context.Context, apiKey, shelfID, bookID string) error
	ListShelfBooks(ctx context.Context, apiKey, shelfID string) ([]string, error)
	RemoveBookFromShelf(ctx context.Context, apiKey, shelfID, bookID string) error
}

type Service struct {
	backend Backend
	now     func() time.Time
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend, now: time.Now}
}

// Create makes a shelf owned by the key's user and fills it with the
// requested books. Returns the new shelf id.
func (s *Service) Create(ctx context.Context, apiKey string, req CreateRequest) (string, error) {
	if req.Name == "" {
		return "", ErrMissingName
	}

	shelfID, err := s.backend.CreateShelf(ctx, apiKey, req.Name, nil)
	if err != nil {
		return "", err
	}

	for _, item := range req.Items {
		if err := s.backend.AddBookToShelf(ctx, apiKey, shelfID, item.RevisionID); err != nil {
			return "", fmt.Errorf("add %s to shelf %s: %w", item.RevisionID, shelfID, err)
		}
	}
	return shelfID, nil
}

func (s *Service) Rename(ctx context.Context, apiKey, shelfID string, req RenameRequest) error {
	if req.Name == "" {
		return ErrMissingName
	}
	return s.backend.RenameShelf(ctx, apiKey, shelfID, req.Name)
}

// Delete removes a shelf. A shelf that no longer exists counts as deleted.
func (s *Service) Delete(ctx context.Context, apiKey, shelfID string) error {
	err := s.backend.DeleteShelf(ctx, apiKey, shelfID)
	if errors.Is(err, prosa.ErrNotFound) {
		return nil
	}
	return err
}

// AddItems puts books on a shelf and returns the ids that were added.
func (s *Service) AddItems(ctx context.Context, apiKey, shelfID string, req ItemsRequest) ([]string, error) {
	added := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if err := s.backend.AddBookToShelf(ctx, apiKey, shelfID, item.RevisionID); err != nil {
			return nil, err
		}
		added = append(added, item.RevisionID)
	}
	return added, nil
}

// RemoveItems takes books off a shelf, skipping those already gone.
func (s *Service) RemoveItems(ctx context.Context, apiKey, shelfID string, req ItemsRequest) error {
	for _, item := range req.Items {
		err := s.backend.RemoveBookFromShelf(ctx, apiKey, shelfID, item.RevisionID)
		if err != nil && !errors.Is(err, prosa.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Snapshot reads a shelf's name and contents as a NewTag event.
func (s *Service) Snapshot(ctx context.Context, apiKey, shelfID string) (*NewTagEvent, error) {
	shelf, err := s.backend.GetShelf(ctx, apiKey, shelfID)
	if err != nil {
		return nil, err
	}
	books, err := s.backend.ListShelfBooks(ctx, apiKey, shelfID)
	if err != nil {
		return nil, err
	}

	event := NewTag(shelfID, shelf.Name, books, s.now())
	return &event, nil
}
