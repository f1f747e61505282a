package main

import "github.com/charmbracelet/lipgloss"

var (
	successColor = lipgloss.Color("#04B575")
	errorColor   = lipgloss.Color("#FF4B4B")
	primaryColor = lipgloss.Color("#7D56F4")
	mutedColor   = lipgloss.Color("#666666")

	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// render applies style unless --no-color is set.
func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}
