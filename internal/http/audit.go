package http

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/entities"
)

// AuditLog reads recorded device events.
type AuditLog interface {
	GetEvents(deviceID string, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	devices DeviceStore
	events  AuditLog
}

func NewAuditController(store DeviceStore, events AuditLog) *AuditController {
	return &AuditController{devices: store, events: events}
}

// AuditEventsResponse is one page of a device's audit trail.
type AuditEventsResponse struct {
	Events      []entities.AuditEvent `json:"events"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
	TotalPages  int                   `json:"total_pages"`
	TotalEvents int64                 `json:"total_events"`
}

// GetAuditEvents returns paginated audit events of a device linked to the
// caller's key. Devices of other keys are reported as not found.
// GET /devices/linked/:device_id/audit
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	deviceID := c.Param("device_id")

	linked, err := ac.devices.ListLinked(apiKeyFrom(c, ""))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !slices.Contains(linked, deviceID) {
		abortWithError(c, devices.ErrDeviceNotFound)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	events, total, err := ac.events.GetEvents(deviceID, limit, (page-1)*limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, AuditEventsResponse{
		Events:      events,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		TotalEvents: total,
	})
}
