package audit

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/kobosync/internal/database/audit"
	"github.com/mrlokans/kobosync/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo)

	return svc, db
}

func waitForAction(t *testing.T, db *gorm.DB, action string) entities.AuditEvent {
	t.Helper()
	var event entities.AuditEvent
	require.Eventually(t, func() bool {
		return db.Where("action = ?", action).First(&event).Error == nil
	}, time.Second, 10*time.Millisecond)
	return event
}

func TestService_Log_AssignsCorrelationID(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		DeviceID:  "dev-1",
		EventType: entities.AuditEventDevice,
		Action:    "custom",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Len(t, saved.CorrelationID, 36)
}

func TestService_LogLinkChange(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful link", func(t *testing.T) {
		svc.LogLinkChange(ActionDeviceLink, "dev-1", "abcd", Request{IPAddress: "10.0.0.1"}, nil)

		event := waitForAction(t, db, ActionDeviceLink)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, "abcd", event.KeyPrefix)
		assert.Equal(t, "Linked device dev-1", event.Description)
	})

	t.Run("failed unlink", func(t *testing.T) {
		svc.LogLinkChange(ActionDeviceUnlink, "dev-2", "", Request{}, errors.New("device already unlinked"))

		event := waitForAction(t, db, ActionDeviceUnlink)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "device already unlinked", event.ErrorMsg)
	})
}

func TestService_LogDeviceSeen_TruncatesUserAgent(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogDeviceSeen("dev-1", Request{UserAgent: strings.Repeat("k", 600)})

	event := waitForAction(t, db, ActionDeviceAuthenticate)
	assert.Len(t, event.UserAgent, 500)
	assert.True(t, strings.HasSuffix(event.UserAgent, "..."))
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "old", CreatedAt: time.Now().Add(-72 * time.Hour)}))
	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "new"}))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	db.Model(&entities.AuditEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
