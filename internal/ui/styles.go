// Package ui implements the terminal dashboard for tariff rates.
package ui

import "github.com/charmbracelet/lipgloss"

// Color definitions for the dashboard theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Price band colors
	Cheap    = lipgloss.Color("42")  // Green
	Neutral  = lipgloss.Color("252") // Default text
	Pricey   = lipgloss.Color("220") // Yellow
	Peak     = lipgloss.Color("196") // Red
	Plunge   = lipgloss.Color("39")  // Blue, negative prices
	ErrColor = lipgloss.Color("196")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SectionStyle is used for section headings.
var SectionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// HelpStyle renders the footer key hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// ErrorStyle renders refresh failures.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ErrColor)

// CurrentRateStyle renders the headline price.
var CurrentRateStyle = lipgloss.NewStyle().
	Bold(true).
	Padding(0, 1).
	Border(lipgloss.RoundedBorder())

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2)

// intensityColor maps a classification to a display color.
func intensityColor(score float64, negative bool) lipgloss.Color {
	switch {
	case negative:
		return Plunge
	case score == 0:
		return Cheap
	case score < 0.5:
		return Pricey
	default:
		return Peak
	}
}
