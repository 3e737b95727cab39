// Package ui renders command output: tagged status lines and ranked results.
package ui

import "github.com/charmbracelet/lipgloss"

// Terminal palette (ANSI 256).
const (
	ColorBlue   = "33"
	ColorGreen  = "40"
	ColorYellow = "220"
	ColorRed    = "196"
	ColorGray   = "245"
)

type Styles struct {
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Rank  lipgloss.Style
	Title lipgloss.Style
	Score lipgloss.Style
	Path  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Info:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBlue)),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRed)),

		Rank:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Title: lipgloss.NewStyle().Bold(true),
		Score: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Path:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Info:    lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Rank:    lipgloss.NewStyle(),
		Title:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
	}
}

func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
