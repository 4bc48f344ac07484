package changelog

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/shelves"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type fakeFeed struct {
	resp      prosa.SyncResponse
	err       error
	lastSince string
}

func (f *fakeFeed) Sync(_ context.Context, _, since string) (*prosa.SyncResponse, error) {
	f.lastSince = since
	if f.err != nil {
		return nil, f.err
	}
	return &f.resp, nil
}

type fakeStates struct{ err error }

func (f fakeStates) Get(_ context.Context, _, bookID string) (*readingstate.ReadingState, error) {
	if f.err != nil {
		return nil, f.err
	}
	rs := readingstate.Default(bookID, fixedNow)
	return &rs, nil
}

// missingState fails like the backend does for a deleted book.
type missingState struct{ bookID string }

func (f missingState) Get(ctx context.Context, apiKey, bookID string) (*readingstate.ReadingState, error) {
	if bookID == f.bookID {
		return nil, prosa.ErrNotFound
	}
	return fakeStates{}.Get(ctx, apiKey, bookID)
}

type fakeMetadata struct{}

func (f *fakeMetadata) Metadata(_ context.Context, _, deviceID, bookID, serverURL string) (*library.BookMetadata, error) {
	meta := library.DefaultMetadata(bookID)
	meta.DownloadURLs[0].URL = serverURL + "/books/" + bookID
	return &meta, nil
}

type fakeShelves struct{ names map[string]string }

func (f fakeShelves) Snapshot(_ context.Context, _, shelfID string) (*shelves.NewTagEvent, error) {
	name, ok := f.names[shelfID]
	if !ok {
		return nil, prosa.ErrNotFound
	}
	event := shelves.NewTag(shelfID, name, []string{"b1"}, fixedNow)
	return &event, nil
}

type recorder struct {
	rotated     []string
	invalidated []string
}

func (r *recorder) Rotate(bookID string) error {
	r.rotated = append(r.rotated, bookID)
	return nil
}

func (r *recorder) InvalidateCover(bookID string) error {
	r.invalidated = append(r.invalidated, bookID)
	return nil
}

func newEngine(feed *fakeFeed, rec *recorder, names map[string]string) *Engine {
	engine := NewEngine(feed, fakeStates{}, &fakeMetadata{}, fakeShelves{names: names}, rec, rec)
	engine.now = func() time.Time { return fixedNow }
	return engine
}

func entitlementOf(t *testing.T, event Event) NewEntitlement {
	t.Helper()
	e, ok := event.(NewEntitlementEvent)
	require.True(t, ok, "expected entitlement, got %T", event)
	return e.NewEntitlement
}

func TestSync_OrdersEntitlementsBeforeTags(t *testing.T) {
	feed := &fakeFeed{resp: prosa.SyncResponse{
		Book: prosa.BookChanges{
			File:     []string{"b2", "b1"},
			Cover:    []string{"b1", "b3"},
			Metadata: []string{"b4", "b2"},
			Deleted:  []string{"b9"},
		},
		Shelf: prosa.ShelfChanges{
			Metadata: []string{"s2"},
			Contents: []string{"s1", "s2"},
			Deleted:  []string{"s7"},
		},
	}}
	rec := &recorder{}
	engine := newEngine(feed, rec, map[string]string{"s1": "One", "s2": "Two"})

	result, err := engine.Sync(context.Background(), Request{APIKey: "key", DeviceID: "dev", Since: "123", ServerURL: "http://host"})
	require.NoError(t, err)
	assert.Equal(t, "123", feed.lastSince)
	assert.Equal(t, strconv.FormatInt(fixedNow.UnixMilli(), 10), result.Token)

	require.Len(t, result.Events, 8)

	var books []string
	for _, event := range result.Events[:5] {
		books = append(books, entitlementOf(t, event).BookEntitlement.ID)
	}
	assert.Equal(t, []string{"b2", "b1", "b3", "b4", "b9"}, books)

	removed := entitlementOf(t, result.Events[4])
	assert.True(t, removed.BookEntitlement.IsRemoved)
	assert.True(t, removed.BookEntitlement.IsHiddenFromArchive)
	assert.Equal(t, "ReadyToRead", removed.ReadingState.StatusInfo.Status)

	live := entitlementOf(t, result.Events[0])
	assert.False(t, live.BookEntitlement.IsRemoved)
	assert.Equal(t, "http://host/books/b2", live.BookMetadata.DownloadURLs[0].URL)

	first, ok := result.Events[5].(shelves.NewTagEvent)
	require.True(t, ok)
	assert.Equal(t, "s2", first.NewTag.Tag.ID)
	second, ok := result.Events[6].(shelves.NewTagEvent)
	require.True(t, ok)
	assert.Equal(t, "s1", second.NewTag.Tag.ID)

	deleted, ok := result.Events[7].(shelves.DeletedTagEvent)
	require.True(t, ok)
	assert.Equal(t, "s7", deleted.DeletedTag.Tag.ID)

	assert.Equal(t, []string{"b1", "b3"}, rec.invalidated)
}

func TestSync_EmptyFeed(t *testing.T) {
	engine := newEngine(&fakeFeed{}, &recorder{}, nil)

	result, err := engine.Sync(context.Background(), Request{APIKey: "key"})
	require.NoError(t, err)
	assert.Empty(t, result.Events)

	data, err := json.Marshal(result.Events)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSync_AnnotationChangesRotateETags(t *testing.T) {
	feed := &fakeFeed{resp: prosa.SyncResponse{Book: prosa.BookChanges{Annotations: []string{"b1", "b2", "b1"}}}}
	rec := &recorder{}

	result, err := newEngine(feed, rec, nil).Sync(context.Background(), Request{APIKey: "key"})
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Equal(t, []string{"b1", "b2"}, rec.rotated)
}

func TestSync_BackendErrors(t *testing.T) {
	engine := newEngine(&fakeFeed{err: prosa.ErrUnauthorized}, &recorder{}, nil)
	_, err := engine.Sync(context.Background(), Request{APIKey: "key"})
	assert.ErrorIs(t, err, prosa.ErrUnauthorized)

	feed := &fakeFeed{resp: prosa.SyncResponse{Shelf: prosa.ShelfChanges{Metadata: []string{"gone"}}}}
	_, err = newEngine(feed, &recorder{}, nil).Sync(context.Background(), Request{APIKey: "key"})
	assert.ErrorIs(t, err, prosa.ErrNotFound)

	feed = &fakeFeed{resp: prosa.SyncResponse{Book: prosa.BookChanges{File: []string{"b1"}}}}
	engine = NewEngine(feed, fakeStates{err: prosa.ErrForbidden}, &fakeMetadata{}, fakeShelves{}, &recorder{}, nil)
	_, err = engine.Sync(context.Background(), Request{APIKey: "key"})
	assert.ErrorIs(t, err, prosa.ErrForbidden)
}

func TestSync_CreatedAndDeletedInOneWindow(t *testing.T) {
	feed := &fakeFeed{resp: prosa.SyncResponse{
		Book: prosa.BookChanges{
			File:     []string{"gone", "b1"},
			Metadata: []string{"gone"},
			Deleted:  []string{"gone"},
		},
		Shelf: prosa.ShelfChanges{
			Contents: []string{"s-gone"},
			Deleted:  []string{"s-gone"},
		},
	}}
	engine := NewEngine(feed, missingState{bookID: "gone"}, &fakeMetadata{}, fakeShelves{}, &recorder{}, nil)
	engine.now = func() time.Time { return fixedNow }

	result, err := engine.Sync(context.Background(), Request{APIKey: "key"})
	require.NoError(t, err, "deleted ids are never looked up")
	require.Len(t, result.Events, 3)

	live := entitlementOf(t, result.Events[0])
	assert.Equal(t, "b1", live.BookEntitlement.ID)
	assert.False(t, live.BookEntitlement.IsRemoved)

	removed := entitlementOf(t, result.Events[1])
	assert.Equal(t, "gone", removed.BookEntitlement.ID)
	assert.True(t, removed.BookEntitlement.IsRemoved)

	deleted, ok := result.Events[2].(shelves.DeletedTagEvent)
	require.True(t, ok)
	assert.Equal(t, "s-gone", deleted.DeletedTag.Tag.ID)
}

func TestSync_EventJSON(t *testing.T) {
	feed := &fakeFeed{resp: prosa.SyncResponse{
		Book:  prosa.BookChanges{Deleted: []string{"b1"}},
		Shelf: prosa.ShelfChanges{Deleted: []string{"s1"}},
	}}

	result, err := newEngine(feed, &recorder{}, nil).Sync(context.Background(), Request{APIKey: "key"})
	require.NoError(t, err)

	data, err := json.Marshal(result.Events)
	require.NoError(t, err)

	var raw []map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)

	entitlement := raw[0]["NewEntitlement"]
	require.NotNil(t, entitlement)
	book := entitlement["BookEntitlement"].(map[string]any)
	assert.Equal(t, true, book["IsRemoved"])
	assert.Equal(t, "2024-05-06T07:08:09.0000000Z", book["Created"])
	assert.Contains(t, entitlement, "ReadingState")
	assert.Contains(t, entitlement, "BookMetadata")

	assert.Contains(t, raw[1], "DeletedTag")
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unique([]string{"a", "b"}, []string{"b", "c", "a"}))
	assert.Nil(t, unique())
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, without([]string{"a", "b", "c"}, []string{"b", "x"}))
	assert.Equal(t, []string{"a"}, without([]string{"a"}, nil))
	assert.Nil(t, without([]string{"a"}, []string{"a"}))
}
