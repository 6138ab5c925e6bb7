package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7D56F4")
	danger = lipgloss.Color("#FF5F87")
	muted  = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accent).
			Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted)

	activeButtonStyle = buttonStyle.
				BorderForeground(accent).
				Foreground(accent).
				Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(muted).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger).
			Bold(true)

	labelStyle  = lipgloss.NewStyle().Foreground(accent)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	helpStyle   = lipgloss.NewStyle().Foreground(muted)
)
