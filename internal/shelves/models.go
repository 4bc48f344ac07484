package shelves

import (
	"time"

	"github.com/mrlokans/kobosync/internal/kobo"
)

const (
	tagTypeUser     = "UserTag"
	tagItemRevision = "ProductRevisionTagItem"
)

// Tag is a shelf as the device sees it. Deleted tags carry only the id and
// modification time.
type Tag struct {
	ID           string     `json:"Id"`
	Name         *string    `json:"Name,omitempty"`
	Type         *string    `json:"Type,omitempty"`
	Items        *[]TagItem `json:"Items,omitempty"`
	Created      *string    `json:"Created,omitempty"`
	LastModified string     `json:"LastModified"`
}

type TagItem struct {
	RevisionID string `json:"RevisionId"`
	Type       string `json:"Type"`
}

type TagEnvelope struct {
	Tag Tag `json:"Tag"`
}

// NewTagEvent announces a shelf snapshot to the device.
type NewTagEvent struct {
	NewTag TagEnvelope `json:"NewTag"`
}

// DeletedTagEvent announces a removed shelf.
type DeletedTagEvent struct {
	DeletedTag TagEnvelope `json:"DeletedTag"`
}

type CreateRequest struct {
	Name  string    `json:"Name"`
	Items []TagItem `json:"Items"`
}

type RenameRequest struct {
	Name string `json:"Name"`
}

type ItemsRequest struct {
	Items []TagItem `json:"Items"`
}

// NewTag builds the full snapshot of a shelf.
func NewTag(id, name string, bookIDs []string, now time.Time) NewTagEvent {
	ts := kobo.FormatTime(now)
	tagType := tagTypeUser

	items := make([]TagItem, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		items = append(items, TagItem{RevisionID: bookID, Type: tagItemRevision})
	}

	return NewTagEvent{NewTag: TagEnvelope{Tag: Tag{
		ID:           id,
		Name:         &name,
		Type:         &tagType,
		Items:        &items,
		Created:      &ts,
		LastModified: ts,
	}}}
}

func DeletedTag(id string, now time.Time) DeletedTagEvent {
	return DeletedTagEvent{DeletedTag: TagEnvelope{Tag: Tag{
		ID:           id,
		LastModified: kobo.FormatTime(now),
	}}}
}
