package audit

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/kobosync/internal/database/audit"
	"github.com/mrlokans/kobosync/internal/entities"
)

// Device lifecycle actions.
const (
	ActionDeviceAuthenticate = "device_authenticate"
	ActionDeviceRefresh      = "device_refresh"
	ActionDeviceLink         = "device_link"
	ActionDeviceUnlink       = "device_unlink"
	ActionBookDelete         = "book_delete"
)

// Request carries the caller details recorded with an event.
type Request struct {
	IPAddress string
	UserAgent string
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	if event.CorrelationID == "" {
		event.CorrelationID = uuid.NewString()
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.Log(event); err != nil {
			log.Printf("[AUDIT] Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event passed to LogAsync is written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogDeviceSeen records the first authentication of a device identity.
func (s *Service) LogDeviceSeen(deviceID string, req Request) {
	s.LogAsync(&entities.AuditEvent{
		DeviceID:    deviceID,
		EventType:   entities.AuditEventAuth,
		Action:      ActionDeviceAuthenticate,
		Description: "New device registered as unlinked",
		IPAddress:   req.IPAddress,
		UserAgent:   truncate(req.UserAgent, 500),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogRefreshFailure records a rejected refresh token.
func (s *Service) LogRefreshFailure(req Request, err error) {
	s.LogAsync(&entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    ActionDeviceRefresh,
		IPAddress: req.IPAddress,
		UserAgent: truncate(req.UserAgent, 500),
		Status:    entities.AuditStatusFailed,
		ErrorMsg:  truncate(err.Error(), 500),
	})
}

// LogLinkChange records a link or unlink attempt. keyPrefix must never be
// the full key.
func (s *Service) LogLinkChange(action, deviceID, keyPrefix string, req Request, err error) {
	event := &entities.AuditEvent{
		DeviceID:    deviceID,
		EventType:   entities.AuditEventDevice,
		Action:      action,
		Description: describe(action, deviceID),
		KeyPrefix:   keyPrefix,
		IPAddress:   req.IPAddress,
		UserAgent:   truncate(req.UserAgent, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogBookDelete records a book removed from a device.
func (s *Service) LogBookDelete(deviceID, bookID string) {
	s.LogAsync(&entities.AuditEvent{
		DeviceID:    deviceID,
		EventType:   entities.AuditEventBook,
		Action:      ActionBookDelete,
		Description: "Deleted book " + bookID,
		Status:      entities.AuditStatusSuccess,
	})
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(deviceID string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(deviceID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func describe(action, deviceID string) string {
	switch action {
	case ActionDeviceLink:
		return "Linked device " + deviceID
	case ActionDeviceUnlink:
		return "Unlinked device " + deviceID
	default:
		return action + " " + deviceID
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
