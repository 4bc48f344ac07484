// Package readingstate translates reading progress, ratings and analytics
// events between the device protocol and Prosa's flat state record.
package readingstate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mrlokans/kobosync/internal/kobo"
	"github.com/mrlokans/kobosync/internal/prosa"
)

var ErrMissingState = errors.New("no reading state provided")

const (
	statusRead        = "Read"
	statusUnread      = "Unread"
	statusFinished    = "Finished"
	statusReadyToRead = "ReadyToRead"

	locationTypeSpan = "KoboSpan"
	sourceSeparator  = "!!"

	eventRateBook = "RateBook"
	resultSuccess = "Success"
)

// Backend is the part of the Prosa client the translator needs.
type Backend interface {
	GetState(ctx context.Context, apiKey, bookID string) (*prosa.State, error)
	UpdateState(ctx context.Context, apiKey, bookID string, state prosa.State) error
	UpdateRating(ctx context.Context, apiKey, bookID string, rating float64) error
}

type Translator struct {
	backend Backend
	now     func() time.Time
}

func NewTranslator(backend Backend) *Translator {
	return &Translator{backend: backend, now: time.Now}
}

// Get returns the device view of a book's state.
func (t *Translator) Get(ctx context.Context, apiKey, bookID string) (*ReadingState, error) {
	state, err := t.backend.GetState(ctx, apiKey, bookID)
	if err != nil {
		return nil, err
	}
	rs := FromBackend(bookID, *state, t.now())
	return &rs, nil
}

// Put writes the first reading state of the request as one backend update.
func (t *Translator) Put(ctx context.Context, apiKey, bookID string, req UpdateRequest) (*UpdateResponse, error) {
	if len(req.ReadingStates) == 0 {
		return nil, ErrMissingState
	}

	if err := t.backend.UpdateState(ctx, apiKey, bookID, ToBackend(req.ReadingStates[0])); err != nil {
		return nil, err
	}

	success := Result{Result: resultSuccess}
	return &UpdateResponse{
		RequestResult: resultSuccess,
		UpdateResults: []UpdateResult{{
			EntitlementID:         bookID,
			StatusInfoResult:      success,
			StatisticsResult:      success,
			CurrentBookmarkResult: success,
		}},
	}, nil
}

// Ratings returns the rounded rating of a book, or no items when the book
// has not been rated.
func (t *Translator) Ratings(ctx context.Context, apiKey, bookID string) (*RatingsResponse, error) {
	state, err := t.backend.GetState(ctx, apiKey, bookID)
	if err != nil {
		return nil, err
	}

	resp := &RatingsResponse{Items: []RatingItem{}}
	if state.Statistics.Rating != nil {
		resp.Items = append(resp.Items, RatingItem{
			ID:     bookID,
			Rating: int(math.Round(*state.Statistics.Rating)),
		})
	}
	return resp, nil
}

// Rate stores a rating for a book.
func (t *Translator) Rate(ctx context.Context, apiKey, bookID string, rating float64) error {
	return t.backend.UpdateRating(ctx, apiKey, bookID, rating)
}

// Events accepts every event and forwards RateBook events as ratings.
func (t *Translator) Events(ctx context.Context, apiKey string, req EventsRequest) (*EventsResponse, error) {
	resp := &EventsResponse{AcceptedEvents: []string{}, RejectedEvents: map[string]any{}}

	for _, event := range req.Events {
		if event.EventType == eventRateBook {
			bookID, _ := event.Attributes["volumeid"].(string)
			stars, ok := event.Metrics["stars"].(float64)
			if bookID == "" || !ok {
				return nil, fmt.Errorf("%w: rating event %s lacks volumeid or stars", prosa.ErrBadRequest, event.ID)
			}
			if err := t.backend.UpdateRating(ctx, apiKey, bookID, stars); err != nil {
				return nil, err
			}
		}
		resp.AcceptedEvents = append(resp.AcceptedEvents, event.ID)
	}
	return resp, nil
}

// Reviews returns the fixed reviews page. Devices only need a well-formed
// empty listing.
func Reviews() ReviewsPage {
	return ReviewsPage{
		ReviewSummary:    map[string]any{},
		Cursor:           "1",
		Items:            []any{},
		TotalPageCount:   10,
		CurrentPageIndex: 1,
	}
}

// Default is the state reported for books without a stored record.
func Default(bookID string, now time.Time) ReadingState {
	return FromBackend(bookID, prosa.State{Statistics: prosa.Statistics{ReadingStatus: statusUnread}}, now)
}

// FromBackend builds the device view of a backend state record. Every
// section carries the same modification time.
func FromBackend(bookID string, state prosa.State, now time.Time) ReadingState {
	ts := kobo.FormatTime(now)

	var location *Location
	if state.Location != nil && state.Location.Tag != "" && state.Location.Source != "" {
		location = &Location{
			Value:  state.Location.Tag,
			Type:   locationTypeSpan,
			Source: state.Location.Source,
		}
	}

	return ReadingState{
		EntitlementID: bookID,
		Created:       ts,
		LastModified:  ts,
		StatusInfo: StatusInfo{
			LastModified:     ts,
			Status:           deviceStatus(state.Statistics.ReadingStatus),
			LastTimeFinished: ts,
		},
		Statistics: Statistics{LastModified: ts},
		CurrentBookmark: CurrentBookmark{
			LastModified: ts,
			Location:     location,
		},
		PriorityTimestamp: ts,
	}
}

// ToBackend flattens a device reading state into the backend record.
func ToBackend(rs ReadingState) prosa.State {
	state := prosa.State{
		Statistics: prosa.Statistics{ReadingStatus: backendStatus(rs.StatusInfo.Status)},
	}
	if loc := rs.CurrentBookmark.Location; loc != nil {
		state.Location = &prosa.Location{
			Tag:    loc.Value,
			Source: stripSourcePrefix(loc.Source),
		}
	}
	return state
}

func deviceStatus(status string) string {
	switch status {
	case statusRead:
		return statusFinished
	case statusUnread:
		return statusReadyToRead
	default:
		return status
	}
}

func backendStatus(status string) string {
	switch status {
	case statusFinished:
		return statusRead
	case statusReadyToRead:
		return statusUnread
	default:
		return status
	}
}

// stripSourcePrefix drops the container path devices prepend to the
// chapter source, up to and including the first "!!".
func stripSourcePrefix(source string) string {
	if _, after, found := strings.Cut(source, sourceSeparator); found {
		return after
	}
	return source
}
