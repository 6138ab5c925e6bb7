// Package catalog locates individual queries inside the demo's multi-query SQL
// script. Queries are introduced by a "-- Query <id>" marker line.
package catalog

import (
	"strings"
	"unicode/utf8"
)

// Text is the full catalog script as served by the backend.
type Text string

// QueryID is the marker id of a query, e.g. "3".
type QueryID string

// MarkerPrefix is the generic marker that terminates a query region.
const MarkerPrefix = "-- Query"

const labelWidth = 100

// Marker returns the literal marker that opens query id.
func Marker(id QueryID) string {
	return MarkerPrefix + " " + string(id)
}

// Extract returns the source text of query id: everything from its marker up to
// the next generic marker, trimmed, with the marker itself removed.
func Extract(text Text, id QueryID) (string, bool) {
	r, ok := region(string(text), id)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(r, Marker(id))), true
}

// Lookup returns the executable SQL of query id. Comment lines, including the
// marker, are dropped.
func Lookup(text Text, id QueryID) (string, bool) {
	r, ok := region(string(text), id)
	if !ok {
		return "", false
	}
	return StripComments(r), true
}

// Label is the first line of the query source cut to 100 characters and
// followed by an ellipsis. Unknown ids yield just the ellipsis.
func Label(text Text, id QueryID) string {
	src, _ := Extract(text, id)
	first, _, _ := strings.Cut(src, "\n")
	if utf8.RuneCountInString(first) > labelWidth {
		first = string([]rune(first)[:labelWidth])
	}
	return first + "..."
}

// StripComments removes every line whose first non-blank characters are "--".
func StripComments(src string) string {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// region scans forward once: the first marker for id opens the region and the
// next generic marker after it, whatever its id, closes it.
func region(text string, id QueryID) (string, bool) {
	start := strings.Index(text, Marker(id))
	if start == -1 {
		return "", false
	}
	end := len(text)
	if next := strings.Index(text[start+1:], MarkerPrefix); next != -1 {
		end = start + 1 + next
	}
	return strings.TrimSpace(text[start:end]), true
}

// Catalog holds the last successfully loaded script. The zero value is an
// empty, not yet loaded catalog.
type Catalog struct {
	text   Text
	loaded bool
}

func (c *Catalog) Text() Text {
	return c.text
}

func (c *Catalog) Loaded() bool {
	return c.loaded
}

// Replace swaps the held text wholesale.
func (c *Catalog) Replace(text Text) {
	c.text = text
	c.loaded = true
}

func (c *Catalog) Extract(id QueryID) (string, bool) {
	return Extract(c.text, id)
}

func (c *Catalog) Label(id QueryID) string {
	return Label(c.text, id)
}
