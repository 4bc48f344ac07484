package entities

import "time"

// LinkedDevice binds a device identity to a Prosa API key.
// A device holds at most one link at a time.
type LinkedDevice struct {
	DeviceID string `gorm:"primaryKey;size:64" json:"device_id"`

	// APIKey is the sealed API key.
	// Stored as base64-encoded AES-256-GCM ciphertext
	APIKey string `gorm:"type:text;not null" json:"-"`

	// KeyFingerprint is an HMAC of the plaintext key, used for lookups by key
	KeyFingerprint string `gorm:"size:64;not null;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (LinkedDevice) TableName() string {
	return "linked_devices"
}

// UnlinkedDevice is a device identity that has authenticated but holds no link.
type UnlinkedDevice struct {
	DeviceID  string    `gorm:"primaryKey;size:64" json:"device_id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

func (UnlinkedDevice) TableName() string {
	return "unlinked_devices"
}
