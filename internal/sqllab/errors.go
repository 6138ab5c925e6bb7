package sqllab

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrQueryNotFound   = errors.New("query not found")
	ErrEmptyQuery      = errors.New("query has no executable statement")
	ErrInvalidRequest  = errors.New("invalid request")
)

// ConnectionError means the database could not be reached or the session
// could not be prepared.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
