package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/kobosync/internal/devices"
)

const apiKeyHeader = "api-key"

type DeviceAuthRequest struct {
	AffiliateName string `json:"AffiliateName"`
	AppVersion    string `json:"AppVersion"`
	ClientKey     string `json:"ClientKey"`
	DeviceID      string `json:"DeviceId" binding:"required"`
	PlatformID    string `json:"PlatformId"`
	SerialNumber  string `json:"SerialNumber"`
	UserKey       string `json:"UserKey"`
}

type DeviceAuthResponse struct {
	AccessToken  string `json:"AccessToken"`
	TokenType    string `json:"TokenType"`
	RefreshToken string `json:"RefreshToken"`
	UserKey      string `json:"UserKey"`
	TrackingID   string `json:"TrackingId"`
}

type RefreshRequest struct {
	AppVersion   string `json:"AppVersion"`
	ClientKey    string `json:"ClientKey"`
	PlatformID   string `json:"PlatformId"`
	RefreshToken string `json:"RefreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"AccessToken"`
	TokenType    string `json:"TokenType"`
	RefreshToken string `json:"RefreshToken"`
}

// LinkRequest is the body of link and unlink calls.
type LinkRequest struct {
	DeviceID string `json:"device_id"`
	APIKey   string `json:"api_key"`
}

type UnlinkedDevice struct {
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
}

// DevicesController authenticates devices and manages their links.
type DevicesController struct {
	devices DeviceStore
}

func NewDevicesController(store DeviceStore) *DevicesController {
	return &DevicesController{devices: store}
}

// Authenticate issues a session to a device.
// POST /v1/auth/device
func (dc *DevicesController) Authenticate(c *gin.Context) {
	var req DeviceAuthRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := dc.devices.Authenticate(req.DeviceID, req.UserKey, requestInfo(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeviceAuthResponse{
		AccessToken:  session.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: session.RefreshToken,
		UserKey:      req.UserKey,
		TrackingID:   uuid.NewString(),
	})
}

// Refresh exchanges a refresh token for a new session.
// POST /v1/auth/refresh
func (dc *DevicesController) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := dc.devices.Refresh(req.RefreshToken, requestInfo(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  session.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: session.RefreshToken,
	})
}

// ListUnlinked lists devices that authenticated but hold no link.
// GET /devices/unlinked
func (dc *DevicesController) ListUnlinked(c *gin.Context) {
	list, err := dc.devices.ListUnlinked()
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]UnlinkedDevice, 0, len(list))
	for _, d := range list {
		out = append(out, UnlinkedDevice{DeviceID: d.DeviceID, Timestamp: d.Timestamp.UnixMilli()})
	}
	c.JSON(http.StatusOK, out)
}

// ListLinked lists the devices linked to the key in the api-key header.
// GET /devices/linked
func (dc *DevicesController) ListLinked(c *gin.Context) {
	list, err := dc.devices.ListLinked(apiKeyFrom(c, ""))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Link binds a device to an API key.
// POST /devices/linked
func (dc *DevicesController) Link(c *gin.Context) {
	var req LinkRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := dc.devices.Link(req.DeviceID, apiKeyFrom(c, req.APIKey), requestInfo(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Unlink removes a device's link. The key must be the one it is linked to.
// DELETE /devices/linked/:device_id
func (dc *DevicesController) Unlink(c *gin.Context) {
	var req LinkRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	deviceID := c.Param("device_id")
	if req.DeviceID != "" && req.DeviceID != deviceID {
		abortWithError(c, devices.ErrDeviceNotFound)
		return
	}

	if err := dc.devices.Unlink(deviceID, apiKeyFrom(c, req.APIKey), requestInfo(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// apiKeyFrom prefers the api-key header over a key given in the body.
func apiKeyFrom(c *gin.Context, fromBody string) string {
	if key := strings.TrimSpace(c.GetHeader(apiKeyHeader)); key != "" {
		return key
	}
	if key := c.Query("api_key"); key != "" {
		return key
	}
	return fromBody
}
