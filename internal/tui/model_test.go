package tui

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/internal/runner"
	"sql-lab/pkg/api"
)

type stubBackend struct {
	text    catalog.Text
	runErr  error
	schema  json.RawMessage
	results map[catalog.QueryID]*api.RunQueryResponse
}

func (s *stubBackend) FetchCatalog(context.Context) (catalog.Text, error) { return s.text, nil }

func (s *stubBackend) RunQuery(_ context.Context, qid catalog.QueryID) (*api.RunQueryResponse, error) {
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.results[qid], nil
}

func (s *stubBackend) Introspect(context.Context) (json.RawMessage, error) { return s.schema, nil }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and returns every non-spinner message it produces.
func drain(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, drain(t, c)...)
		}
		return out
	case catalogMsg, runMsg, introspectionMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

func newModel(b runner.Backend) Model {
	ctrl := runner.New(b)
	return New(context.Background(), ctrl, i18n.Printer("en"))
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestInit_LoadsCatalog(t *testing.T) {
	m := newModel(&stubBackend{text: "-- Query 1: All books\nSELECT 1;"})

	msgs := drain(t, m.Init())
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	assert.True(t, m.ctrl.Catalog().Loaded())
}

func TestRunKey(t *testing.T) {
	res := &api.RunQueryResponse{QID: "3", Columns: []string{"title"}, Rows: []map[string]any{{"title": "Dune"}}}
	m := newModel(&stubBackend{results: map[catalog.QueryID]*api.RunQueryResponse{"3": res}})

	m, cmd := update(t, m, key("3"))
	assert.Equal(t, runner.Loading{QID: "3"}, m.ctrl.State())
	assert.Contains(t, m.View(), "Running query...")

	msgs := drain(t, cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	assert.Equal(t, runner.Loaded{Result: res}, m.ctrl.State())
	assert.Contains(t, m.View(), "Dune")
	assert.Contains(t, m.View(), "1 row found")
}

func TestRunKey_LateResponseDropped(t *testing.T) {
	r1 := &api.RunQueryResponse{QID: "1", Columns: []string{"v"}, Rows: []map[string]any{{"v": "first"}}}
	r2 := &api.RunQueryResponse{QID: "2", Columns: []string{"v"}, Rows: []map[string]any{{"v": "second"}}}
	m := newModel(&stubBackend{results: map[catalog.QueryID]*api.RunQueryResponse{"1": r1, "2": r2}})

	m, cmd1 := update(t, m, key("1"))
	m, cmd2 := update(t, m, key("2"))

	second := drain(t, cmd2)
	first := drain(t, cmd1)
	m, _ = update(t, m, second[0])
	m, _ = update(t, m, first[0])

	assert.Equal(t, runner.Loaded{Result: r2}, m.ctrl.State())
	assert.Contains(t, m.View(), "second")
	assert.NotContains(t, m.View(), "first")
}

func TestRunKey_Failure(t *testing.T) {
	m := newModel(&stubBackend{runErr: errors.New("connection refused")})

	m, cmd := update(t, m, key("1"))
	m, _ = update(t, m, drain(t, cmd)[0])

	assert.Contains(t, m.View(), "Error running query: connection refused")
}

func TestIntrospectKey(t *testing.T) {
	m := newModel(&stubBackend{schema: json.RawMessage(`{"schema":"public","tables":{}}`)})

	m, cmd := update(t, m, key("i"))
	m, _ = update(t, m, drain(t, cmd)[0])

	assert.Equal(t, runner.Idle{}, m.ctrl.State())
	assert.Contains(t, m.View(), "Introspection completed")
}

func TestKeysOutsideButtons(t *testing.T) {
	m := newModel(&stubBackend{})

	m, cmd := update(t, m, key("8"))
	assert.Nil(t, drain(t, cmd))
	assert.Equal(t, runner.Idle{}, m.ctrl.State())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, m.showCatalog)
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView_ShowsSelectedLabel(t *testing.T) {
	text := catalog.Text("-- Query 1\nSELECT * FROM books;\n-- Query 2\nSELECT 2;")
	m := newModel(&stubBackend{text: text, results: map[catalog.QueryID]*api.RunQueryResponse{}})
	m, _ = update(t, m, drain(t, m.Init())[0])

	m, _ = update(t, m, key("1"))

	assert.Contains(t, m.View(), "SELECT * FROM books;...")
}
