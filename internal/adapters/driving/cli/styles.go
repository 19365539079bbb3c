package cli

import "github.com/charmbracelet/lipgloss"

// Shared terminal styles for command output.
var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleFaint   = lipgloss.NewStyle().Faint(true)
	stylePass    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleScore   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)
