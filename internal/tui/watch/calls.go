package watch

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const maxCallLines = 12

func renderCalls(calls []CallRow, theme Theme, width int) string {
	innerWidth := width - 4

	if len(calls) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("CALLS"),
			theme.Dim.Render("  No calls yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	lines := make([]string, 0, maxCallLines)
	for i, c := range calls {
		if i == maxCallLines {
			break
		}
		lines = append(lines, renderCallRow(c, theme))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{theme.Title.Render("CALLS")}, lines...)...,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func renderCallRow(c CallRow, theme Theme) string {
	id := c.ID
	if len(id) > 8 {
		id = id[:8]
	}

	name := c.OpName
	if name == "" {
		name = c.Opcode
	}

	outcome := theme.outcomeStyle(c.Outcome).Render(fmt.Sprintf("%-12s", c.Outcome))

	return fmt.Sprintf(" %s %s %s  %-18s st=%-4d %s",
		theme.Dim.Render(c.CreatedAt.Local().Format("15:04:05")),
		theme.Highlight.Render(id),
		outcome,
		name,
		c.Status,
		theme.Dim.Render(c.Duration.String()),
	)
}
