package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/prosa"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{auth.ErrExpiredToken, http.StatusUnauthorized, "EXPIRED_TOKEN"},
		{auth.ErrNotLinked, http.StatusUnauthorized, "DEVICE_NOT_LINKED"},
		{auth.ErrRateLimited, http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{devices.ErrAlreadyUnlinked, http.StatusConflict, "DEVICE_ALREADY_UNLINKED"},
		{fmt.Errorf("metadata of b1: %w", prosa.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{prosa.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
		{prosa.ErrConflict, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: bad json", ErrBadRequest), http.StatusBadRequest, "BAD_REQUEST"},
		{ErrMissingDeviceID, http.StatusUnauthorized, "MISSING_DEVICE_ID"},
		{ErrUnknownTask, http.StatusNotFound, "NOT_FOUND"},
		{&prosa.UpstreamError{StatusCode: 503}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{fmt.Errorf("sync: %w", &prosa.UpstreamError{Err: errors.New("dial tcp")}), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			kind := classify(tt.err)
			assert.Equal(t, tt.status, kind.status)
			assert.Equal(t, tt.code, kind.code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		abortWithError(c, prosa.ErrNotFound)
	})
	router.GET("/written", func(c *gin.Context) {
		c.String(http.StatusTeapot, "short and stout")
		_ = c.Error(errors.New("late failure"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/fail", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error_code":"NOT_FOUND","message":"The requested resource does not exist."}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/written", nil))
	assert.Equal(t, http.StatusTeapot, w.Code, "a written response is left alone")
	assert.Equal(t, "short and stout", w.Body.String())
}
