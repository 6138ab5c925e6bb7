// Package render turns the client run state into text: an error banner, a
// loading line, a results table or the selection prompt.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/message"

	"sql-lab/internal/i18n"
	"sql-lab/internal/runner"
	"sql-lab/pkg/api"
)

// View is the one view shown for a state.
type View int

const (
	ViewPrompt View = iota
	ViewLoading
	ViewResults
	ViewError
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewResults:
		return "results"
	case ViewError:
		return "error"
	default:
		return "prompt"
	}
}

// Output formats accepted by Results.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// ViewFor picks the view for st. An error always wins, then loading, then a
// loaded result. Everything else shows the prompt.
func ViewFor(st runner.State) View {
	switch s := st.(type) {
	case runner.Failed:
		return ViewError
	case runner.Loading:
		return ViewLoading
	case runner.Loaded:
		if s.Result != nil {
			return ViewResults
		}
	}
	return ViewPrompt
}

// State writes the view for st.
func State(w io.Writer, p *message.Printer, st runner.State, format string) error {
	var err error
	switch ViewFor(st) {
	case ViewError:
		_, err = fmt.Fprintln(w, st.(runner.Failed).Message)
	case ViewLoading:
		_, err = fmt.Fprintln(w, p.Sprintf(i18n.MsgLoading))
	case ViewResults:
		err = Results(w, p, st.(runner.Loaded).Result, format)
	default:
		_, err = fmt.Fprintln(w, p.Sprintf(i18n.MsgPrompt))
	}
	return err
}

// RowCount is the localized "N rows found" summary.
func RowCount(p *message.Printer, n int) string {
	return p.Sprintf(i18n.MsgRowsFound, n)
}

// Results writes the row count and the result rows. A result without rows
// prints the no-results placeholder instead of an empty table.
func Results(w io.Writer, p *message.Printer, res *api.RunQueryResponse, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if _, err := fmt.Fprintln(w, RowCount(p, len(res.Rows))); err != nil {
		return err
	}
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, p.Sprintf(i18n.MsgNoResults))
		return err
	}

	t := newTable(res.Columns)
	for _, row := range res.Rows {
		r := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			r[i] = Cell(row[col])
		}
		t.AppendRow(r)
	}

	var out string
	switch format {
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatCSV:
		out = t.RenderCSV()
	default:
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// Grid renders plain rows with every cell cut to width runes. A width of 0
// keeps cells whole.
func Grid(cols []string, rows [][]any, width int) string {
	t := newTable(cols)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			s := "NULL"
			if v != nil {
				s = stringify(v)
			}
			r[i] = truncate(s, width)
		}
		t.AppendRow(r)
	}
	return t.Render()
}

func newTable(cols []string) table.Writer {
	t := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)
	return t
}

// Cell is the display form of a result value. Falsy values render as NULL.
func Cell(v any) string {
	if IsFalsy(v) {
		return "NULL"
	}
	return stringify(v)
}

// IsFalsy reports whether v is nil, false, a numeric zero, NaN or the empty
// string.
func IsFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	case float64:
		return x == 0 || math.IsNaN(x)
	case float32:
		return x == 0 || math.IsNaN(float64(x))
	case int:
		return x == 0
	case int8:
		return x == 0
	case int16:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint:
		return x == 0
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}
