// Package tui is the interactive terminal front end: seven query buttons, a
// schema button and the result view of the selected query.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/message"

	"sql-lab/internal/catalog"
	"sql-lab/internal/i18n"
	"sql-lab/internal/render"
	"sql-lab/internal/runner"
)

// Buttons is the number of query buttons, bound to the keys 1 to Buttons.
const Buttons = 7

type catalogMsg struct{ outcome runner.CatalogOutcome }

type runMsg struct{ outcome runner.RunOutcome }

type introspectionMsg struct{ outcome runner.IntrospectionOutcome }

// Model is the bubbletea model. The controller is only touched from Update,
// commands carry outcomes back as messages.
type Model struct {
	ctx     context.Context
	ctrl    *runner.Controller
	printer *message.Printer

	spinner     spinner.Model
	viewport    viewport.Model
	showCatalog bool
	notice      string
	width       int
	height      int
}

func New(ctx context.Context, ctrl *runner.Controller, p *message.Printer) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = labelStyle

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		printer:  p,
		spinner:  sp,
		viewport: viewport.New(80, 15),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCatalog(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-12, 5)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case catalogMsg:
		_ = m.ctrl.ApplyCatalog(msg.outcome)
		m.refresh()
		return m, nil

	case runMsg:
		if m.ctrl.ApplyRun(msg.outcome) {
			m.refresh()
		}
		return m, nil

	case introspectionMsg:
		if notice, err := m.ctrl.ApplyIntrospection(msg.outcome); err == nil {
			m.notice = notice
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.showCatalog = !m.showCatalog
		return m, nil
	case "r":
		return m, m.loadCatalog()
	case "i":
		m.notice = ""
		return m, m.introspect()
	}

	if len(key) == 1 && key[0] >= '1' && key[0] < '1'+Buttons {
		m.notice = ""
		t := m.ctrl.BeginRun(catalog.QueryID(key))
		m.refresh()
		return m, m.run(t)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) loadCatalog() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return catalogMsg{outcome: ctrl.FetchCatalog(ctx)}
	}
}

func (m Model) run(t runner.Ticket) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return runMsg{outcome: ctrl.Execute(ctx, t)}
	}
}

func (m Model) introspect() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return introspectionMsg{outcome: ctrl.FetchIntrospection(ctx)}
	}
}

// refresh re-renders the results into the viewport.
func (m *Model) refresh() {
	loaded, ok := m.ctrl.State().(runner.Loaded)
	if !ok || loaded.Result == nil {
		m.viewport.SetContent("")
		return
	}
	var b strings.Builder
	if err := render.Results(&b, m.printer, loaded.Result, render.FormatTable); err != nil {
		b.WriteString(err.Error())
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func (m Model) View() string {
	sections := []string{
		titleStyle.Render("SQL Lab"),
		m.buttons(),
	}

	if sel := m.ctrl.Selected(); sel != "" {
		heading := m.printer.Sprintf(i18n.MsgQueryHeading, string(sel))
		sections = append(sections, labelStyle.Render(heading)+" "+m.ctrl.Catalog().Label(sel))
	}

	sections = append(sections, m.body())

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	sections = append(sections, helpStyle.Render("1-7 run • i schema • r reload • tab queries • ↑/↓ scroll • q quit"))

	main := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if !m.showCatalog {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, paneStyle.Render(m.catalogPane()))
}

func (m Model) body() string {
	st := m.ctrl.State()
	switch render.ViewFor(st) {
	case render.ViewError:
		return errorStyle.Render(st.(runner.Failed).Message)
	case render.ViewLoading:
		return m.spinner.View() + " " + m.printer.Sprintf(i18n.MsgLoading)
	case render.ViewResults:
		return m.viewport.View()
	default:
		return helpStyle.Render(m.printer.Sprintf(i18n.MsgPrompt))
	}
}

func (m Model) buttons() string {
	sel := m.ctrl.Selected()
	btns := make([]string, 0, Buttons+1)
	for i := 1; i <= Buttons; i++ {
		id := catalog.QueryID(fmt.Sprint(i))
		label := m.printer.Sprintf(i18n.MsgQueryHeading, string(id))
		label = strings.TrimSuffix(label, ":")
		if id == sel {
			btns = append(btns, activeButtonStyle.Render(label))
			continue
		}
		btns = append(btns, buttonStyle.Render(label))
	}
	btns = append(btns, buttonStyle.Render(m.printer.Sprintf(i18n.MsgSchemaButton)))
	return lipgloss.JoinHorizontal(lipgloss.Top, btns...)
}

func (m Model) catalogPane() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(m.printer.Sprintf(i18n.MsgQueryListHeading)))
	b.WriteString("\n")
	for _, e := range catalog.Entries(m.ctrl.Catalog().Text()) {
		fmt.Fprintf(&b, "%s  %s\n", e.ID, e.Title)
	}
	return b.String()
}

// Run starts the program on the alternate screen and blocks until it quits.
func Run(ctx context.Context, ctrl *runner.Controller, p *message.Printer) error {
	prog := tea.NewProgram(New(ctx, ctrl, p), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}
