package entities

import "time"

// BookToken grants a single device time-bound access to one book file.
type BookToken struct {
	Token     string    `gorm:"primaryKey;size:200"`
	BookID    string    `gorm:"size:64;not null;index"`
	DeviceID  string    `gorm:"size:64;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (BookToken) TableName() string {
	return "book_tokens"
}

// IsExpired reports whether the token is no longer usable at now.
func (t *BookToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// CoverToken grants a device access to one book cover. Cover tokens do not expire
// and are reused for the same (book, device) pair.
type CoverToken struct {
	Token     string `gorm:"primaryKey;size:64"`
	BookID    string `gorm:"size:64;not null;uniqueIndex:idx_cover_book_device"`
	DeviceID  string `gorm:"size:64;not null;uniqueIndex:idx_cover_book_device"`
	CreatedAt time.Time
}

func (CoverToken) TableName() string {
	return "cover_tokens"
}
