// Package scripts serves the SQL scripts of the lab (schema.sql, seed.sql and
// the query catalog) from a local directory or an S3 bucket.
package scripts

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("script not found")

// Store reads scripts by file name.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// validName rejects anything that is not a plain file name.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid script name %q", name)
	}
	return nil
}

func isScript(name string) bool {
	return strings.EqualFold(path.Ext(name), ".sql")
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}
