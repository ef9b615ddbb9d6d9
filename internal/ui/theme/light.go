package theme

import "github.com/charmbracelet/lipgloss"

// Light uses Catppuccin Latte
// https://github.com/catppuccin/catppuccin
var Light = Theme{
	Name: "light",

	Background: lipgloss.Color("#EFF1F5"),
	Foreground: lipgloss.Color("#4C4F69"),
	Subtle:     lipgloss.Color("#8C8FA1"),
	Highlight:  lipgloss.Color("#DCE0E8"),
	Border:     lipgloss.Color("#BCC0CC"),

	Primary:   lipgloss.Color("#1E66F5"), // Blue
	Secondary: lipgloss.Color("#8839EF"), // Mauve
	Info:      lipgloss.Color("#209FB5"), // Sapphire

	Success: lipgloss.Color("#40A02B"),
	Warning: lipgloss.Color("#DF8E1D"),
	Error:   lipgloss.Color("#D20F39"),

	PriorityLow:    lipgloss.Color("#40A02B"),
	PriorityMedium: lipgloss.Color("#DF8E1D"),
	PriorityHigh:   lipgloss.Color("#D20F39"),

	SubjectBackground: lipgloss.Color("#E6E9EF"),
}
