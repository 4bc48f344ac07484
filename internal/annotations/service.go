// Package annotations translates device annotations to Prosa and keeps the
// per-book entity tag devices use to detect changes.
package annotations

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/kobosync/internal/crypto"
	"github.com/mrlokans/kobosync/internal/database/etags"
	"github.com/mrlokans/kobosync/internal/prosa"
)

const etagBytes = 32

// Backend is the part of the Prosa client the service needs.
type Backend interface {
	ListAnnotations(ctx context.Context, apiKey, bookID string) ([]string, error)
	GetAnnotation(ctx context.Context, apiKey, bookID, annotationID string) (*prosa.Annotation, error)
	AddAnnotation(ctx context.Context, apiKey, bookID string, annotation prosa.NewAnnotation) (string, error)
	PatchAnnotationNote(ctx context.Context, apiKey, bookID, annotationID, note string) error
	DeleteAnnotation(ctx context.Context, apiKey, bookID, annotationID string) error
}

type Service struct {
	backend Backend
	etags   *etags.Repository
	now     func() time.Time
}

func NewService(backend Backend, etagRepo *etags.Repository) *Service {
	return &Service{backend: backend, etags: etagRepo, now: time.Now}
}

// List returns the annotations of a book and the book's current entity tag.
func (s *Service) List(ctx context.Context, apiKey, bookID string) (*ListResponse, string, error) {
	ids, err := s.backend.ListAnnotations(ctx, apiKey, bookID)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	resp := &ListResponse{Annotations: make([]Annotation, 0, len(ids))}
	for _, id := range ids {
		annotation, err := s.backend.GetAnnotation(ctx, apiKey, bookID, id)
		if err != nil {
			return nil, "", err
		}
		resp.Annotations = append(resp.Annotations, FromBackend(*annotation, now))
	}

	etag, err := s.ETag(bookID)
	if err != nil {
		return nil, "", err
	}
	return resp, etag, nil
}

// Patch applies upserts, then deletions, then rotates the entity tag.
// An upsert the backend already holds updates the note only.
func (s *Service) Patch(ctx context.Context, apiKey, bookID string, req PatchRequest) error {
	for _, annotation := range req.UpdatedAnnotations {
		body, err := ToBackend(annotation)
		if err != nil {
			return err
		}

		_, err = s.backend.AddAnnotation(ctx, apiKey, bookID, body)
		if errors.Is(err, prosa.ErrConflict) {
			note := ""
			if annotation.NoteText != nil {
				note = *annotation.NoteText
			}
			err = s.backend.PatchAnnotationNote(ctx, apiKey, bookID, annotation.ID, note)
		}
		if err != nil {
			return err
		}
	}

	for _, id := range req.DeletedAnnotationIDs {
		if err := s.backend.DeleteAnnotation(ctx, apiKey, bookID, id); err != nil {
			return err
		}
	}

	return s.Rotate(bookID)
}

// CheckForChanges returns the books whose stored entity tag differs from
// the one presented. Books without a stored tag are skipped.
func (s *Service) CheckForChanges(checks []ContentCheck) ([]string, error) {
	ids := make([]string, 0, len(checks))
	for _, check := range checks {
		ids = append(ids, check.ContentID)
	}

	stored, err := s.etags.GetMany(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load etags: %w", err)
	}

	changed := []string{}
	for _, check := range checks {
		etag, ok := stored[check.ContentID]
		if ok && etag != check.ETag {
			changed = append(changed, check.ContentID)
		}
	}
	return changed, nil
}

// ETag returns the entity tag of a book, creating one on first use.
func (s *Service) ETag(bookID string) (string, error) {
	etag, err := s.etags.Get(bookID)
	if err == nil {
		return etag, nil
	}
	if !errors.Is(err, etags.ErrNotFound) {
		return "", err
	}
	return s.rotate(bookID)
}

// Rotate replaces the entity tag of a book.
func (s *Service) Rotate(bookID string) error {
	_, err := s.rotate(bookID)
	return err
}

// Forget drops the entity tag of a deleted book.
func (s *Service) Forget(bookID string) error {
	return s.etags.Delete(bookID)
}

func (s *Service) rotate(bookID string) (string, error) {
	etag, err := crypto.RandomToken(etagBytes, base64.StdEncoding)
	if err != nil {
		return "", err
	}
	if err := s.etags.Put(bookID, etag); err != nil {
		return "", fmt.Errorf("failed to store etag: %w", err)
	}
	return etag, nil
}
