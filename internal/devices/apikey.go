package devices

import (
	"fmt"
	"regexp"

	"github.com/mrlokans/kobosync/internal/config"
)

// KeyValidator rejects API keys that cannot be valid before any lookup.
type KeyValidator struct {
	pattern   *regexp.Regexp
	minLength int
	maxLength int
}

// NewKeyValidator compiles the configured key format.
func NewKeyValidator(cfg config.APIKey) (*KeyValidator, error) {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = config.DefaultAPIKeyPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid api key pattern %q: %w", pattern, err)
	}

	minLength := cfg.MinLength
	if minLength < 1 {
		minLength = 1
	}

	return &KeyValidator{pattern: re, minLength: minLength, maxLength: cfg.MaxLength}, nil
}

// Validate returns ErrMissingAPIKey for an empty key and ErrInvalidAPIKey
// for a key outside the configured shape.
func (v *KeyValidator) Validate(apiKey string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	if len(apiKey) < v.minLength || (v.maxLength > 0 && len(apiKey) > v.maxLength) {
		return ErrInvalidAPIKey
	}
	if !v.pattern.MatchString(apiKey) {
		return ErrInvalidAPIKey
	}
	return nil
}
