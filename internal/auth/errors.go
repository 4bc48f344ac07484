package auth

import "errors"

var (
	ErrUnauthenticated   = errors.New("no authentication was provided")
	ErrInvalidAuthHeader = errors.New("invalid authentication header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("expired token")
	ErrNotLinked         = errors.New("device is not linked")
	ErrForbidden         = errors.New("insufficient capability")
	ErrRateLimited       = errors.New("too many requests")
)
