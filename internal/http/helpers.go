package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/auth"
)

// requestInfo extracts the client details recorded in audit events.
func requestInfo(c *gin.Context) audit.Request {
	return audit.Request{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// authorized returns the caller once it is confirmed to hold the route's
// capability. Call it after validating the request; on failure the request
// is aborted.
func authorized(c *gin.Context) (*auth.Identity, bool) {
	id, err := auth.Authorized(c)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return id, true
}

// bindJSON decodes the request body into v. On failure the request is
// aborted with ErrBadRequest and false is returned.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return false
	}
	return true
}

// requestHost is the host devices should use to reach this server.
func requestHost(c *gin.Context, publicHost string) string {
	if publicHost != "" {
		if _, after, found := strings.Cut(publicHost, "://"); found {
			return after
		}
		return publicHost
	}
	return c.Request.Host
}

// serverURL is the scheme and host prefix used in links handed to devices.
func serverURL(c *gin.Context, publicHost string) string {
	if strings.Contains(publicHost, "://") {
		return strings.TrimSuffix(publicHost, "/")
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + requestHost(c, publicHost)
}
