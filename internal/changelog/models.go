package changelog

import (
	"time"

	"github.com/mrlokans/kobosync/internal/kobo"
	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/readingstate"
)

const (
	entitlementStatus        = "Active"
	entitlementAccessibility = "Full"
	entitlementOrigin        = "Purchased"
)

// Event is one entry of a sync response: a NewEntitlementEvent, a
// shelves.NewTagEvent or a shelves.DeletedTagEvent.
type Event any

type NewEntitlementEvent struct {
	NewEntitlement NewEntitlement `json:"NewEntitlement"`
}

type NewEntitlement struct {
	BookEntitlement BookEntitlement           `json:"BookEntitlement"`
	ReadingState    readingstate.ReadingState `json:"ReadingState"`
	BookMetadata    library.BookMetadata      `json:"BookMetadata"`
}

type BookEntitlement struct {
	ActivePeriod        ActivePeriod `json:"ActivePeriod"`
	IsRemoved           bool         `json:"IsRemoved"`
	Status              string       `json:"Status"`
	Accessibility       string       `json:"Accessibility"`
	CrossRevisionID     string       `json:"CrossRevisionId"`
	RevisionID          string       `json:"RevisionId"`
	IsHiddenFromArchive bool         `json:"IsHiddenFromArchive"`
	ID                  string       `json:"Id"`
	Created             string       `json:"Created"`
	LastModified        string       `json:"LastModified"`
	IsLocked            bool         `json:"IsLocked"`
	OriginCategory      string       `json:"OriginCategory"`
}

type ActivePeriod struct {
	From string `json:"From"`
}

// NewBookEntitlement describes a book on the account. Removed books stay
// listed but hidden so offline devices can purge them.
func NewBookEntitlement(bookID string, removed bool, now time.Time) BookEntitlement {
	ts := kobo.FormatTime(now)
	return BookEntitlement{
		ActivePeriod:        ActivePeriod{From: ts},
		IsRemoved:           removed,
		Status:              entitlementStatus,
		Accessibility:       entitlementAccessibility,
		CrossRevisionID:     bookID,
		RevisionID:          bookID,
		IsHiddenFromArchive: removed,
		ID:                  bookID,
		Created:             ts,
		LastModified:        ts,
		OriginCategory:      entitlementOrigin,
	}
}
