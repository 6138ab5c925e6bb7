package runner

import (
	"fmt"

	"sql-lab/internal/catalog"
)

type CatalogLoadError struct {
	Err error
}

func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("catalog load failed: %v", e.Err)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

type RunError struct {
	QID catalog.QueryID
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.QID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type IntrospectionError struct {
	Err error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection failed: %v", e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }
