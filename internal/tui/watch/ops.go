package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// newOpsTable builds the registered-operations table.
func newOpsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Opcode", Width: 10},
			{Title: "Name", Width: 18},
			{Title: "Args", Width: 12},
			{Title: "Ret", Width: 12},
			{Title: "Owner", Width: 8},
			{Title: "Calls", Width: 7},
			{Title: "Fail", Width: 5},
			{Title: "Avg", Width: 9},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// opsRows joins the operation listing with the journal aggregates, keyed by
// hex opcode.
func opsRows(ops []OpRow, stats []StatRow) []table.Row {
	byOpcode := make(map[string]StatRow, len(stats))
	for _, s := range stats {
		byOpcode[s.Opcode] = s
	}

	rows := make([]table.Row, 0, len(ops))
	for _, op := range ops {
		calls, fails, avg := "-", "-", "-"
		if s, ok := byOpcode[op.Opcode]; ok {
			calls = fmt.Sprintf("%d", s.Calls)
			fails = fmt.Sprintf("%d", s.Failures)
			avg = (time.Duration(s.AvgUs) * time.Microsecond).Round(time.Microsecond).String()
		}
		rows = append(rows, table.Row{
			op.Opcode, op.Name, op.Args, op.Ret, op.RetOwner, calls, fails, avg,
		})
	}
	return rows
}

func renderOps(t table.Model, theme Theme, width int) string {
	innerWidth := width - 4

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("OPERATIONS"),
		t.View(),
	)
	return theme.Border.Width(innerWidth).Render(content)
}
