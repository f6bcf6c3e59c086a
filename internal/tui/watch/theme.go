// Package watch implements the opgate live-monitor TUI. It polls the
// gateway's HTTP API and renders registered operations and the call
// journal.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
// Even with a single default theme, this keeps all colors in one place
// and makes future theme support trivial.
type Theme struct {
	// Outcome colors
	OutcomeOK          lipgloss.Style
	OutcomeNotFound    lipgloss.Style
	OutcomeInvalidArgs lipgloss.Style
	OutcomeError       lipgloss.Style

	// UI elements
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Indicators
	TickerActive   lipgloss.Style
	TickerInactive lipgloss.Style
	StatusFailed   lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		OutcomeOK:          lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		OutcomeNotFound:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		OutcomeInvalidArgs: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		OutcomeError:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		TickerActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		TickerInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
	}
}

func (t Theme) outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "ok":
		return t.OutcomeOK
	case "not_found":
		return t.OutcomeNotFound
	case "invalid_args":
		return t.OutcomeInvalidArgs
	default:
		return t.OutcomeError
	}
}
