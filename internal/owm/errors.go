package owm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the API rejects the configured key.
	ErrUnauthorized = errors.New("openweathermap: invalid API key")
	// ErrNotFound is returned when the place query matches nothing.
	ErrNotFound = errors.New("openweathermap: location not found")
)

// UpstreamError is any other non-2xx answer from the API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openweathermap: API returned status %d", e.Status)
	}
	return fmt.Sprintf("openweathermap: API returned status %d: %s", e.Status, e.Message)
}

// NetworkError wraps transport failures (dial, timeout, truncated body).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "openweathermap: network failure: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }
