package http

import (
	"context"

	"github.com/mrlokans/kobosync/internal/annotations"
	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/changelog"
	"github.com/mrlokans/kobosync/internal/covers"
	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/entities"
	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/shelves"
)

// This file gathers the service interfaces the controllers depend on.
// Each controller takes only the slice it uses.

// DeviceStore authenticates devices and manages their links.
type DeviceStore interface {
	Authenticate(deviceID, userKey string, req audit.Request) (*devices.Session, error)
	Refresh(refreshToken string, req audit.Request) (*devices.Session, error)
	IssueAccessToken(deviceID string) (string, error)
	Link(deviceID, apiKey string, req audit.Request) error
	Unlink(deviceID, apiKey string, req audit.Request) error
	ListLinked(apiKey string) ([]string, error)
	ListUnlinked() ([]entities.UnlinkedDevice, error)
	LinkedKey(deviceID string) (string, error)
}

// Syncer answers library sync requests.
type Syncer interface {
	Sync(ctx context.Context, req changelog.Request) (*changelog.Result, error)
}

// LibraryStore builds book metadata and removes books.
type LibraryStore interface {
	Metadata(ctx context.Context, apiKey, deviceID, bookID, serverURL string) (*library.BookMetadata, error)
	Delete(ctx context.Context, apiKey, deviceID, bookID string) error
}

// StateStore translates reading state, ratings and analytics events.
type StateStore interface {
	Get(ctx context.Context, apiKey, bookID string) (*readingstate.ReadingState, error)
	Put(ctx context.Context, apiKey, bookID string, req readingstate.UpdateRequest) (*readingstate.UpdateResponse, error)
	Ratings(ctx context.Context, apiKey, bookID string) (*readingstate.RatingsResponse, error)
	Rate(ctx context.Context, apiKey, bookID string, rating float64) error
	Events(ctx context.Context, apiKey string, req readingstate.EventsRequest) (*readingstate.EventsResponse, error)
}

// AnnotationStore lists and edits annotations.
type AnnotationStore interface {
	List(ctx context.Context, apiKey, bookID string) (*annotations.ListResponse, string, error)
	Patch(ctx context.Context, apiKey, bookID string, req annotations.PatchRequest) error
	CheckForChanges(checks []annotations.ContentCheck) ([]string, error)
}

// TokenValidator checks download tokens and returns the device they were
// issued to.
type TokenValidator interface {
	ValidateBookToken(bookID, token string) (string, error)
	ValidateCoverToken(bookID, token string) (string, error)
}

// BookSource streams book files.
type BookSource interface {
	DownloadBook(ctx context.Context, apiKey, bookID string) (*prosa.Content, error)
}

// CoverSource serves cover images in the requested size.
type CoverSource interface {
	GetCover(ctx context.Context, apiKey, bookID string, size covers.Size) (*covers.Image, error)
}

// ShelfStore edits shelves.
type ShelfStore interface {
	Create(ctx context.Context, apiKey string, req shelves.CreateRequest) (string, error)
	Rename(ctx context.Context, apiKey, shelfID string, req shelves.RenameRequest) error
	Delete(ctx context.Context, apiKey, shelfID string) error
	AddItems(ctx context.Context, apiKey, shelfID string, req shelves.ItemsRequest) ([]string, error)
	RemoveItems(ctx context.Context, apiKey, shelfID string, req shelves.ItemsRequest) error
}
