package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKey      = errors.New("llm: OpenAI API key not configured")
	ErrEmptyResponse = errors.New("llm: completion returned no choices")

	ErrNoProvider   = errors.New("llm: no provider configured")
	ErrAgentNoTools = errors.New("llm: tool server offers no tools")
	ErrAgentSteps   = errors.New("llm: agent step limit reached")
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("openai: %d: %s", e.Status, e.Message)
}

// Temporary reports whether a retry may succeed: rate limits and 5xx.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Unauthorized reports a rejected API key.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}
