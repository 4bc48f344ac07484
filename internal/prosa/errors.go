package prosa

import (
	"errors"
	"fmt"
)

// Errors returned for backend status codes with a fixed meaning.
var (
	ErrBadRequest   = errors.New("prosa: bad request")
	ErrUnauthorized = errors.New("prosa: unauthorized")
	ErrForbidden    = errors.New("prosa: forbidden")
	ErrNotFound     = errors.New("prosa: not found")
	ErrConflict     = errors.New("prosa: conflict")
)

// UpstreamError represents a backend failure outside the known status codes,
// including transport errors and timeouts (StatusCode 0).
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("prosa unreachable: %v", e.Err)
	}
	return fmt.Sprintf("prosa server error: HTTP %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func statusError(status int) error {
	switch status {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	default:
		return &UpstreamError{StatusCode: status}
	}
}
