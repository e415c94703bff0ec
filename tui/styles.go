package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("208") // HN orange
	colorMuted  = lipgloss.Color("241")
	colorText   = lipgloss.Color("255")
)

var tabActive = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorText).
	Background(colorAccent).
	Padding(0, 1)

var tabInactive = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

var rowSelected = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorText).
	Background(lipgloss.Color("236"))

var rowNormal = lipgloss.NewStyle().
	Foreground(colorText)

var rowMeta = lipgloss.NewStyle().
	Foreground(colorMuted)

var statusBar = lipgloss.NewStyle().
	Foreground(colorText).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

var statusError = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true)

var helpText = lipgloss.NewStyle().
	Foreground(colorMuted)
