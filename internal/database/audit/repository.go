package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/kobosync/internal/entities"
)

// defaultPageSize applies when a caller passes a non-positive limit.
const defaultPageSize = 50

// Repository stores device lifecycle events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event, stamping it with the current time if unset.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents pages the events of one device, newest first, with the total
// count. An empty deviceID pages every device.
func (r *Repository) GetEvents(deviceID string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if deviceID == "" {
			return db
		}
		return db.Where("device_id = ?", deviceID)
	}

	var total int64
	if err := r.db.Model(&entities.AuditEvent{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	offset = max(offset, 0)

	// Events written in the same instant keep insertion order
	var events []entities.AuditEvent
	err := r.db.Scopes(scope).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes events created before olderThan and returns how
// many were removed.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
