package catalog

import (
	"regexp"
	"strings"
)

var markerLine = regexp.MustCompile(`-- Query (\d+)(.*)\n`)

// Entry is one query of the catalog in structured form.
type Entry struct {
	ID    QueryID
	Title string
	SQL   string
}

// Entries splits the script into its queries in file order. The text following
// the id on a marker line becomes the title; it defaults to "Query <id>".
// A marker on the very last line without a trailing newline opens no entry.
func Entries(text Text) []Entry {
	s := string(text)
	matches := markerLine.FindAllStringSubmatchIndex(s, -1)
	entries := make([]Entry, 0, len(matches))
	for i, m := range matches {
		end := len(s)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		id := QueryID(s[m[2]:m[3]])
		title := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s[m[4]:m[5]]), ":.-"))
		if title == "" {
			title = "Query " + string(id)
		}
		entries = append(entries, Entry{
			ID:    id,
			Title: title,
			SQL:   strings.TrimSpace(s[m[1]:end]),
		})
	}
	return entries
}

// IDs lists the query ids of the catalog in file order.
func IDs(text Text) []QueryID {
	entries := Entries(text)
	ids := make([]QueryID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
