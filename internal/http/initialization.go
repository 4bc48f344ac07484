package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitializationController serves the resource map devices fetch after
// authenticating.
type InitializationController struct {
	publicHost string
}

func NewInitializationController(publicHost string) *InitializationController {
	return &InitializationController{publicHost: publicHost}
}

// Initialization returns the resource map pointing at this server.
// GET /v1/initialization
func (ic *InitializationController) Initialization(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	doc, err := renderResource("initialization.json", map[string]string{
		"server":    serverURL(c, ic.publicHost),
		"host":      requestHost(c, ic.publicHost),
		"device_id": id.DeviceID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("x-kobo-apitoken", "e30=")
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

type GetTestsRequest struct {
	TestKey string `json:"TestKey"`
}

type GetTestsResponse struct {
	Result  string         `json:"Result"`
	TestKey string         `json:"TestKey"`
	Tests   map[string]any `json:"Tests"`
}

// GetTests opts the device out of store experiments.
// POST /v1/analytics/gettests
func (ic *InitializationController) GetTests(c *gin.Context) {
	var req GetTestsRequest
	_ = c.ShouldBindJSON(&req)

	c.JSON(http.StatusOK, GetTestsResponse{Result: "Success", TestKey: req.TestKey, Tests: map[string]any{}})
}
