// Package changelog turns Prosa's change feed into the ordered event list a
// device receives from a library sync.
//
// Entitlements always precede tags. Within each category events keep the
// order the backend reported them in, with duplicates dropped at their first
// occurrence.
package changelog

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/shelves"
)

// DefaultConcurrency bounds the backend lookups one sync runs in parallel.
const DefaultConcurrency = 4

type Backend interface {
	Sync(ctx context.Context, apiKey, since string) (*prosa.SyncResponse, error)
}

type StateReader interface {
	Get(ctx context.Context, apiKey, bookID string) (*readingstate.ReadingState, error)
}

type MetadataBuilder interface {
	Metadata(ctx context.Context, apiKey, deviceID, bookID, serverURL string) (*library.BookMetadata, error)
}

type ShelfReader interface {
	Snapshot(ctx context.Context, apiKey, shelfID string) (*shelves.NewTagEvent, error)
}

type ETagRotator interface {
	Rotate(bookID string) error
}

type CoverCache interface {
	InvalidateCover(bookID string) error
}

// Request identifies the caller of a sync.
type Request struct {
	APIKey   string
	DeviceID string
	// Since is the token from the previous sync, passed through verbatim.
	Since string
	// ServerURL prefixes download links in book metadata.
	ServerURL string
}

// Result is the event list and the token the device sends next time.
type Result struct {
	Events []Event
	Token  string
}

type Engine struct {
	backend     Backend
	states      StateReader
	metadata    MetadataBuilder
	shelves     ShelfReader
	etags       ETagRotator
	covers      CoverCache
	concurrency int
	now         func() time.Time
}

func NewEngine(backend Backend, states StateReader, metadata MetadataBuilder, shelves ShelfReader, etags ETagRotator, covers CoverCache) *Engine {
	return &Engine{
		backend:     backend,
		states:      states,
		metadata:    metadata,
		shelves:     shelves,
		etags:       etags,
		covers:      covers,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
}

// Sync collects every change since req.Since.
//
// The next token is taken before the backend is asked, so a change landing
// during the sync is reported again next time rather than lost.
func (e *Engine) Sync(ctx context.Context, req Request) (*Result, error) {
	now := e.now()
	token := strconv.FormatInt(now.UnixMilli(), 10)

	changes, err := e.backend.Sync(ctx, req.APIKey, req.Since)
	if err != nil {
		return nil, err
	}

	// Created and deleted within the window: report the removal only.
	deletedBooks := unique(changes.Book.Deleted)
	deletedShelves := unique(changes.Shelf.Deleted)
	updated := without(unique(changes.Book.File, changes.Book.Cover, changes.Book.Metadata), deletedBooks)

	entitlements, err := e.entitlements(ctx, req, updated, now)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(updated)+len(deletedBooks)+len(changes.Shelf.Metadata)+len(deletedShelves))
	events = append(events, entitlements...)

	for _, bookID := range deletedBooks {
		events = append(events, NewEntitlementEvent{NewEntitlement: NewEntitlement{
			BookEntitlement: NewBookEntitlement(bookID, true, now),
			ReadingState:    readingstate.Default(bookID, now),
			BookMetadata:    library.DefaultMetadata(bookID),
		}})
	}

	for _, bookID := range unique(changes.Book.Annotations) {
		if err := e.etags.Rotate(bookID); err != nil {
			return nil, fmt.Errorf("rotate etag of %s: %w", bookID, err)
		}
	}

	if e.covers != nil {
		for _, bookID := range unique(changes.Book.Cover) {
			if err := e.covers.InvalidateCover(bookID); err != nil {
				log.Printf("[SYNC] Failed to drop cached covers of %s: %v", bookID, err)
			}
		}
	}

	tags, err := e.tags(ctx, req.APIKey, without(unique(changes.Shelf.Metadata, changes.Shelf.Contents), deletedShelves))
	if err != nil {
		return nil, err
	}
	events = append(events, tags...)

	for _, shelfID := range deletedShelves {
		events = append(events, shelves.DeletedTag(shelfID, now))
	}

	log.Printf("[SYNC] Device %s: %d events since %q", shortID(req.DeviceID), len(events), req.Since)
	return &Result{Events: events, Token: token}, nil
}

// entitlements builds NewEntitlement events for the given books, preserving
// their order.
func (e *Engine) entitlements(ctx context.Context, req Request, bookIDs []string, now time.Time) ([]Event, error) {
	out := make([]Event, len(bookIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, bookID := range bookIDs {
		g.Go(func() error {
			state, err := e.states.Get(gctx, req.APIKey, bookID)
			if err != nil {
				return fmt.Errorf("reading state of %s: %w", bookID, err)
			}
			metadata, err := e.metadata.Metadata(gctx, req.APIKey, req.DeviceID, bookID, req.ServerURL)
			if err != nil {
				return fmt.Errorf("metadata of %s: %w", bookID, err)
			}

			out[i] = NewEntitlementEvent{NewEntitlement: NewEntitlement{
				BookEntitlement: NewBookEntitlement(bookID, false, now),
				ReadingState:    *state,
				BookMetadata:    *metadata,
			}}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) tags(ctx context.Context, apiKey string, shelfIDs []string) ([]Event, error) {
	out := make([]Event, len(shelfIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, shelfID := range shelfIDs {
		g.Go(func() error {
			tag, err := e.shelves.Snapshot(gctx, apiKey, shelfID)
			if err != nil {
				return fmt.Errorf("shelf %s: %w", shelfID, err)
			}
			out[i] = *tag
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// unique concatenates lists and drops repeated ids, keeping the first.
func unique(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// without returns ids not present in excluded, keeping their order.
func without(ids, excluded []string) []string {
	if len(excluded) == 0 {
		return ids
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
