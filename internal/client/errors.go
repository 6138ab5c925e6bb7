package client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the backend could not be reached or the exchange broke off.
	ErrTransport = errors.New("backend unreachable")

	// ErrBadPayload means the backend answered with something that is not the expected JSON.
	ErrBadPayload = errors.New("backend response is not valid JSON")
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}
