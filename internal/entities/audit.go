package entities

import "time"

type AuditEventType string

const (
	AuditEventDevice AuditEventType = "device"
	AuditEventAuth   AuditEventType = "auth"
	AuditEventBook   AuditEventType = "book"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CorrelationID string         `gorm:"size:36;index" json:"correlation_id"`
	DeviceID      string         `gorm:"size:64;index" json:"device_id"`
	EventType     AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action        string         `gorm:"size:100" json:"action"`      // e.g., "device_link", "book_delete"
	Description   string         `gorm:"size:500" json:"description"` // Human-readable summary
	KeyPrefix     string         `gorm:"size:16" json:"key_prefix,omitempty"`
	IPAddress     string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent     string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status        AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg      string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
