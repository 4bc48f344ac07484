package annotations

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/kobosync/internal/database/etags"
	"github.com/mrlokans/kobosync/internal/entities"
	"github.com/mrlokans/kobosync/internal/prosa"
)

// fakeBackend stores annotations per book. A second add of the same span
// conflicts, as Prosa does.
type fakeBackend struct {
	books   map[string]map[string]prosa.Annotation
	order   map[string][]string
	nextID  int
	patched []string
}

func newFakeBackend(books ...string) *fakeBackend {
	f := &fakeBackend{books: map[string]map[string]prosa.Annotation{}, order: map[string][]string{}}
	for _, b := range books {
		f.books[b] = map[string]prosa.Annotation{}
	}
	return f
}

func (f *fakeBackend) book(bookID string) (map[string]prosa.Annotation, error) {
	annotations, ok := f.books[bookID]
	if !ok {
		return nil, prosa.ErrNotFound
	}
	return annotations, nil
}

func (f *fakeBackend) ListAnnotations(_ context.Context, _, bookID string) ([]string, error) {
	if _, err := f.book(bookID); err != nil {
		return nil, err
	}
	return append([]string{}, f.order[bookID]...), nil
}

func (f *fakeBackend) GetAnnotation(_ context.Context, _, bookID, id string) (*prosa.Annotation, error) {
	annotations, err := f.book(bookID)
	if err != nil {
		return nil, err
	}
	a, ok := annotations[id]
	if !ok {
		return nil, prosa.ErrNotFound
	}
	return &a, nil
}

func (f *fakeBackend) AddAnnotation(_ context.Context, _, bookID string, n prosa.NewAnnotation) (string, error) {
	annotations, err := f.book(bookID)
	if err != nil {
		return "", err
	}
	for _, a := range annotations {
		if a.Source == n.Source && a.StartTag == n.StartTag && a.StartChar == n.StartChar &&
			a.EndTag == n.EndTag && a.EndChar == n.EndChar {
			return "", prosa.ErrConflict
		}
	}
	f.nextID++
	id := fmt.Sprintf("a%d", f.nextID)
	annotations[id] = prosa.Annotation{
		AnnotationID: id, Source: n.Source, StartTag: n.StartTag, EndTag: n.EndTag,
		StartChar: n.StartChar, EndChar: n.EndChar, Note: n.Note,
	}
	f.order[bookID] = append(f.order[bookID], id)
	return id, nil
}

func (f *fakeBackend) PatchAnnotationNote(_ context.Context, _, bookID, id, note string) error {
	annotations, err := f.book(bookID)
	if err != nil {
		return err
	}
	a, ok := annotations[id]
	if !ok {
		return prosa.ErrNotFound
	}
	a.Note = &note
	annotations[id] = a
	f.patched = append(f.patched, id)
	return nil
}

func (f *fakeBackend) DeleteAnnotation(_ context.Context, _, bookID, id string) error {
	annotations, err := f.book(bookID)
	if err != nil {
		return err
	}
	delete(annotations, id)
	ids := f.order[bookID][:0]
	for _, existing := range f.order[bookID] {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	f.order[bookID] = ids
	return nil
}

func setupTestService(t *testing.T, backend Backend) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "etags.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(&entities.AnnotationETag{}))

	return NewService(backend, etags.NewRepository(db))
}

func strPtr(s string) *string { return &s }

func deviceAnnotation(id string, note *string) Annotation {
	return Annotation{
		ID: id,
		Location: Location{Span: Span{
			ChapterFilename: "OEBPS/ch1.xhtml",
			StartPath:       `span#kobo\.1\.1`,
			StartChar:       0,
			EndPath:         `span#kobo\.1\.3`,
			EndChar:         10,
		}},
		NoteText: note,
		Type:     "note",
	}
}

func TestMapping_RoundTrip(t *testing.T) {
	backend := prosa.Annotation{
		AnnotationID: "a1",
		Source:       "OEBPS/ch1.xhtml",
		StartTag:     "kobo.1.1",
		EndTag:       "kobo.1.3",
		StartChar:    4,
		EndChar:      9,
		Note:         strPtr("remember this"),
	}

	device := FromBackend(backend, time.Now())
	assert.Equal(t, `span#kobo\.1\.1`, device.Location.Span.StartPath)
	assert.Equal(t, `span#kobo\.1\.3`, device.Location.Span.EndPath)
	assert.Equal(t, 10, device.Location.Span.EndChar)
	assert.Equal(t, 4, device.Location.Span.StartChar)
	assert.Equal(t, "note", device.Type)

	back, err := ToBackend(device)
	require.NoError(t, err)
	assert.Equal(t, prosa.NewAnnotation{
		Source:    backend.Source,
		StartTag:  backend.StartTag,
		EndTag:    backend.EndTag,
		StartChar: backend.StartChar,
		EndChar:   backend.EndChar,
		Note:      backend.Note,
	}, back)
}

func TestMapping_HighlightWithoutNote(t *testing.T) {
	device := FromBackend(prosa.Annotation{AnnotationID: "a1", StartTag: "kobo.2", EndTag: "kobo.2"}, time.Now())
	assert.Equal(t, "highlight", device.Type)

	data, err := json.Marshal(device)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"noteText":null`)
	assert.Contains(t, string(data), `"clientLastModifiedUtc"`)
}

func TestMapping_RejectsForeignPath(t *testing.T) {
	a := deviceAnnotation("x", nil)
	a.Location.Span.StartPath = "div#kobo.1"
	_, err := ToBackend(a)
	assert.ErrorIs(t, err, prosa.ErrBadRequest)
}

func TestService_AddUpdateDelete(t *testing.T) {
	backend := newFakeBackend("book-1")
	svc := setupTestService(t, backend)
	ctx := context.Background()

	require.NoError(t, svc.Patch(ctx, "key", "book-1", PatchRequest{
		UpdatedAnnotations: []Annotation{deviceAnnotation("dev-1", strPtr("first"))},
	}))

	list, etag1, err := svc.List(ctx, "key", "book-1")
	require.NoError(t, err)
	require.Len(t, list.Annotations, 1)
	assert.Equal(t, "first", *list.Annotations[0].NoteText)
	assert.Nil(t, list.NextPageOffsetToken)
	id := list.Annotations[0].ID

	update := deviceAnnotation(id, strPtr("second"))
	require.NoError(t, svc.Patch(ctx, "key", "book-1", PatchRequest{UpdatedAnnotations: []Annotation{update}}))
	assert.Equal(t, []string{id}, backend.patched, "conflicting add falls back to a note patch")

	list, etag2, err := svc.List(ctx, "key", "book-1")
	require.NoError(t, err)
	require.Len(t, list.Annotations, 1)
	assert.Equal(t, "second", *list.Annotations[0].NoteText)
	assert.NotEqual(t, etag1, etag2)

	require.NoError(t, svc.Patch(ctx, "key", "book-1", PatchRequest{DeletedAnnotationIDs: []string{id}}))
	list, etag3, err := svc.List(ctx, "key", "book-1")
	require.NoError(t, err)
	assert.Empty(t, list.Annotations)
	assert.NotEqual(t, etag2, etag3)
}

func TestService_UnknownBook(t *testing.T) {
	svc := setupTestService(t, newFakeBackend())
	ctx := context.Background()

	_, _, err := svc.List(ctx, "key", "missing")
	assert.ErrorIs(t, err, prosa.ErrNotFound)

	err = svc.Patch(ctx, "key", "missing", PatchRequest{
		UpdatedAnnotations: []Annotation{deviceAnnotation("x", nil)},
	})
	assert.ErrorIs(t, err, prosa.ErrNotFound)
}

func TestService_ETagIsStableUntilRotated(t *testing.T) {
	svc := setupTestService(t, newFakeBackend("book-1"))

	first, err := svc.ETag("book-1")
	require.NoError(t, err)
	assert.Len(t, first, 44)

	again, err := svc.ETag("book-1")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, svc.Rotate("book-1"))
	rotated, err := svc.ETag("book-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated)

	require.NoError(t, svc.Forget("book-1"))
	changed, err := svc.CheckForChanges([]ContentCheck{{ContentID: "book-1", ETag: "stale"}})
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestService_CheckForChanges(t *testing.T) {
	svc := setupTestService(t, newFakeBackend())

	current, err := svc.ETag("book-1")
	require.NoError(t, err)
	_, err = svc.ETag("book-2")
	require.NoError(t, err)

	changed, err := svc.CheckForChanges([]ContentCheck{
		{ContentID: "book-1", ETag: current},
		{ContentID: "book-2", ETag: "outdated"},
		{ContentID: "book-3", ETag: "never-stored"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"book-2"}, changed)
}
