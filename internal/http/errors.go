package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/shelves"
)

// Request errors raised by the controllers themselves.
var (
	ErrInvalidBookToken  = errors.New("invalid book token")
	ErrInvalidCoverToken = errors.New("invalid cover token")
	ErrMissingBookID     = errors.New("missing book id")
	ErrMissingDeviceID   = errors.New("missing device id")
	ErrBadRequest        = errors.New("malformed request")
)

// ErrorResponse is the body of every error sent to a device.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type errorKind struct {
	status  int
	code    string
	message string
}

var internalError = errorKind{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error"}

// errorTable is matched in order with errors.Is; the first hit wins.
var errorTable = []struct {
	target error
	kind   errorKind
}{
	{auth.ErrUnauthenticated, errorKind{http.StatusUnauthorized, "UNAUTHENTICATED", "No authentication was provided."}},
	{auth.ErrInvalidAuthHeader, errorKind{http.StatusBadRequest, "INVALID_AUTH_HEADER", "Invalid authentication header"}},
	{auth.ErrInvalidToken, errorKind{http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token"}},
	{auth.ErrExpiredToken, errorKind{http.StatusUnauthorized, "EXPIRED_TOKEN", "Expired token"}},
	{auth.ErrNotLinked, errorKind{http.StatusUnauthorized, "DEVICE_NOT_LINKED", "Device is recognized, but is unauthenticated."}},
	{auth.ErrForbidden, errorKind{http.StatusForbidden, "FORBIDDEN", "The api key lacks the required capability."}},
	{auth.ErrRateLimited, errorKind{http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests."}},

	{devices.ErrDeviceNotFound, errorKind{http.StatusNotFound, "DEVICE_NOT_FOUND", "The requested device does not exist or is not accessible."}},
	{devices.ErrAlreadyLinked, errorKind{http.StatusConflict, "DEVICE_ALREADY_LINKED", "This device is already linked."}},
	{devices.ErrAlreadyUnlinked, errorKind{http.StatusConflict, "DEVICE_ALREADY_UNLINKED", "This device is already unlinked."}},
	{devices.ErrInvalidAPIKey, errorKind{http.StatusBadRequest, "INVALID_API_KEY", "The provided api key is invalid."}},
	{devices.ErrMissingAPIKey, errorKind{http.StatusBadRequest, "MISSING_API_KEY", "The api key must be provided."}},

	{ErrInvalidBookToken, errorKind{http.StatusForbidden, "INVALID_BOOK_TOKEN", "The provided book token is invalid."}},
	{ErrInvalidCoverToken, errorKind{http.StatusForbidden, "INVALID_COVER_TOKEN", "The provided cover token is invalid."}},
	{readingstate.ErrMissingState, errorKind{http.StatusBadRequest, "MISSING_STATE", "A reading state must be provided."}},
	{ErrMissingBookID, errorKind{http.StatusBadRequest, "MISSING_BOOK_ID", "A book ID must be provided."}},
	{ErrMissingDeviceID, errorKind{http.StatusUnauthorized, "MISSING_DEVICE_ID", "No device id was provided."}},
	{shelves.ErrMissingName, errorKind{http.StatusBadRequest, "BAD_REQUEST", "A shelf name must be provided."}},
	{ErrBadRequest, errorKind{http.StatusBadRequest, "BAD_REQUEST", "The request is malformed."}},
	{ErrUnknownTask, errorKind{http.StatusNotFound, "NOT_FOUND", "The requested task type does not exist."}},

	{prosa.ErrBadRequest, errorKind{http.StatusBadRequest, "BAD_REQUEST", "The request is malformed."}},
	{prosa.ErrUnauthorized, errorKind{http.StatusForbidden, "FORBIDDEN", "The api key was rejected."}},
	{prosa.ErrForbidden, errorKind{http.StatusForbidden, "FORBIDDEN", "The api key lacks the required capability."}},
	{prosa.ErrNotFound, errorKind{http.StatusNotFound, "NOT_FOUND", "The requested resource does not exist."}},
	{prosa.ErrConflict, errorKind{http.StatusConflict, "CONFLICT", "The resource already exists."}},
}

var upstreamError = errorKind{http.StatusBadGateway, "UPSTREAM_ERROR", "The content service could not be reached."}

func classify(err error) errorKind {
	for _, entry := range errorTable {
		if errors.Is(err, entry.target) {
			return entry.kind
		}
	}

	var upstream *prosa.UpstreamError
	if errors.As(err, &upstream) {
		return upstreamError
	}
	return internalError
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Unclassified errors are logged and reported as internal.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		kind := classify(err)
		switch kind.status {
		case http.StatusInternalServerError:
			log.Printf("Internal error (%s %s): %v", c.Request.Method, c.FullPath(), err)
		case http.StatusBadGateway:
			log.Printf("Upstream error (%s %s): %v", c.Request.Method, c.FullPath(), err)
		}

		c.JSON(kind.status, ErrorResponse{ErrorCode: kind.code, Message: kind.message})
	}
}

// abortWithError hands err to ErrorHandler and stops the chain.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
