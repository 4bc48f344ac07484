package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type OAuthTokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// OAuthController serves the OpenID endpoints newer firmware calls after
// initialization.
type OAuthController struct {
	devices       DeviceStore
	publicHost    string
	tokenDuration time.Duration
}

func NewOAuthController(store DeviceStore, publicHost string, tokenDuration time.Duration) *OAuthController {
	return &OAuthController{devices: store, publicHost: publicHost, tokenDuration: tokenDuration}
}

// Configuration returns the OpenID configuration for a device.
// GET /oauth/:device_id/.well-known/openid-configuration
func (oc *OAuthController) Configuration(c *gin.Context) {
	doc, err := renderResource("openid-configuration.json", map[string]string{
		"server":    serverURL(c, oc.publicHost),
		"device_id": c.Param("device_id"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

// Token issues an access token for the device named in the query.
// POST /oauth/connect/token?device_id=
func (oc *OAuthController) Token(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		abortWithError(c, ErrMissingDeviceID)
		return
	}

	token, err := oc.devices.IssueAccessToken(deviceID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, OAuthTokenResponse{
		IDToken:      token,
		AccessToken:  token,
		ExpiresIn:    int64(oc.tokenDuration.Seconds()),
		TokenType:    "Bearer",
		RefreshToken: token,
		Scope:        "openid profile public_api_authenticated offline_access",
	})
}
