package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Message types ---

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	OpsRegistered int    `json:"ops_registered"`
}

// OpRow is one registered operation as reported by GET /v1/ops.
type OpRow struct {
	Opcode   string `json:"opcode"`
	Name     string `json:"name"`
	Args     string `json:"args"`
	Ret      string `json:"ret"`
	RetOwner string `json:"ret_owner"`
}

type opsMsg []OpRow

// CallRow is one journal record as reported by GET /v1/journal.
type CallRow struct {
	ID        string        `json:"id"`
	Opcode    string        `json:"opcode"`
	OpName    string        `json:"op_name"`
	Outcome   string        `json:"outcome"`
	Status    int32         `json:"status"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// StatRow is one per-opcode aggregate as reported by GET /v1/journal?stats=1.
type StatRow struct {
	Opcode   string  `json:"opcode"`
	OpName   string  `json:"op_name"`
	Calls    int64   `json:"calls"`
	Failures int64   `json:"failures"`
	AvgUs    float64 `json:"avg_us"`
}

type journalMsg struct {
	calls []CallRow
	stats []StatRow
}

type tickMsg time.Time

// pollTarget names one of the three poll chains so a failed fetch can
// reschedule itself without touching the others.
type pollTarget int

const (
	pollHealth pollTarget = iota
	pollOps
	pollJournal
)

type errMsg struct {
	target pollTarget
	err    error
}

// --- Commands ---

func getJSON(apiURL, path string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(apiURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL, "/healthz", &h); err != nil {
		return errMsg{pollHealth, err}
	}
	return h
}

// fetchOps queries the operation listing.
func fetchOps(apiURL string) tea.Msg {
	var payload struct {
		Ops []OpRow `json:"ops"`
	}
	if err := getJSON(apiURL, "/v1/ops", &payload); err != nil {
		return errMsg{pollOps, err}
	}
	return opsMsg(payload.Ops)
}

// fetchJournal queries recent calls plus per-opcode aggregates.
func fetchJournal(apiURL string) tea.Msg {
	var recent struct {
		Calls []CallRow `json:"calls"`
	}
	if err := getJSON(apiURL, "/v1/journal?limit=50", &recent); err != nil {
		return errMsg{pollJournal, err}
	}

	var agg struct {
		Stats []StatRow `json:"stats"`
	}
	if err := getJSON(apiURL, "/v1/journal?stats=1", &agg); err != nil {
		return errMsg{pollJournal, err}
	}

	return journalMsg{calls: recent.Calls, stats: agg.Stats}
}
