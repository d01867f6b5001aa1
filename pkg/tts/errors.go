package tts

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKey    = errors.New("tts: API key required")
	ErrNoVoiceID   = errors.New("tts: voice ID required")
	ErrEmptyText   = errors.New("tts: text cannot be empty")
	ErrNoSamples   = errors.New("tts: at least one voice sample required")
	ErrNoProviders = errors.New("tts: no providers configured")
	ErrAllFailed   = errors.New("tts: every provider failed")
)

// APIError is a non-2xx answer from a vendor API.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %d: %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether a retry may succeed: rate limits and 5xx.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Unauthorized reports a rejected API key.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}
