package auth

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims. Only the device id and the expiry
// are carried.
type Claims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
}

// SessionTokens mints and verifies device session tokens.
type SessionTokens struct {
	key []byte
	now func() time.Time
}

// NewSessionTokens creates a token minter signing with key.
func NewSessionTokens(key []byte) *SessionTokens {
	return &SessionTokens{key: key, now: time.Now}
}

// Issue returns a token for deviceID valid for ttl.
func (s *SessionTokens) Issue(deviceID string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
		},
		DeviceID: deviceID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(signed)), nil
}

// Verify checks a token and returns the device id it was issued for.
func (s *SessionTokens) Verify(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(string(raw), &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.DeviceID == "" {
		return "", ErrInvalidToken
	}
	return claims.DeviceID, nil
}
