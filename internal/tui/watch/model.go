package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Poll cadences. The journal moves fastest; health and the op listing
// change rarely.
const (
	journalPollEvery = 2 * time.Second
	healthPollEvery  = 5 * time.Second
	opsPollEvery     = 10 * time.Second
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string

	width  int
	height int

	// State
	health     HealthState
	ops        []OpRow
	stats      []StatRow
	calls      []CallRow
	lastCallID string

	// Live indicators
	ticker  Ticker
	spinner Spinner

	// UI state
	theme    Theme
	opsTable table.Model

	// Error display
	lastError string
}

// New creates a new watch TUI model.
func New(apiURL string) *Model {
	return &Model{
		apiURL:   apiURL,
		ticker:   NewTicker(),
		spinner:  NewSpinner(),
		theme:    NewDefaultTheme(),
		opsTable: newOpsTable(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return fetchHealth(m.apiURL) },
		func() tea.Msg { return fetchOps(m.apiURL) },
		func() tea.Msg { return fetchJournal(m.apiURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.opsTable, cmd = m.opsTable.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.ticker.Tick()
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.OpsRegistered = msg.OpsRegistered
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(healthPollEvery, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})

	case opsMsg:
		m.ops = msg
		m.opsTable.SetRows(opsRows(m.ops, m.stats))

		return m, tea.Tick(opsPollEvery, func(t time.Time) tea.Msg {
			return fetchOps(m.apiURL)
		})

	case journalMsg:
		m.calls = msg.calls
		m.stats = msg.stats
		m.opsTable.SetRows(opsRows(m.ops, m.stats))

		// Journal is newest-first; light the spinner when the head moves.
		if len(m.calls) > 0 && m.calls[0].ID != m.lastCallID {
			m.lastCallID = m.calls[0].ID
			m.spinner.OnCall()
		}

		return m, tea.Tick(journalPollEvery, func(t time.Time) tea.Msg {
			return fetchJournal(m.apiURL)
		})

	case errMsg:
		m.health.Connected = false
		m.lastError = msg.err.Error()
		// Keep each poll chain alive: retry the fetch that failed.
		target := msg.target
		return m, tea.Tick(healthPollEvery, func(t time.Time) tea.Msg {
			switch target {
			case pollOps:
				return fetchOps(m.apiURL)
			case pollJournal:
				return fetchJournal(m.apiURL)
			default:
				return fetchHealth(m.apiURL)
			}
		})
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing opgate watch..."
	}

	header := renderHeader(m.health, m.ticker, m.spinner, m.theme, m.width)
	ops := renderOps(m.opsTable, m.theme, m.width)
	calls := renderCalls(m.calls, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Navigate Operations")

	parts := []string{header, ops, calls}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
