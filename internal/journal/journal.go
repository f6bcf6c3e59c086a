// Package journal records one row per dispatched call: request id, opcode,
// outcome, handler status, duration. It is the gateway's audit trail and
// feeds the watch TUI and the /v1/journal endpoint.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a dispatch ended.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeInvalidArgs Outcome = "invalid_args"
	OutcomeError       Outcome = "error"
)

// Record is one journal row.
type Record struct {
	ID        string        `json:"id"`
	Opcode    string        `json:"opcode"` // hex key, as the table stores it
	OpName    string        `json:"op_name"`
	Outcome   Outcome       `json:"outcome"`
	Status    int32         `json:"status"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// OpStats aggregates the journal per opcode.
type OpStats struct {
	Opcode   string    `json:"opcode"`
	OpName   string    `json:"op_name"`
	Calls    int64     `json:"calls"`
	Failures int64     `json:"failures"`
	AvgUs    float64   `json:"avg_us"`
	LastCall time.Time `json:"last_call"`
}

// Journal is the sqlite-backed call log.
type Journal struct {
	db *sql.DB
}

// New creates a Journal over an opened database.
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Append writes one record. A missing ID is filled with a fresh UUID; a
// missing CreatedAt with the current time.
func (j *Journal) Append(ctx context.Context, rec *Record) error {
	if rec.Opcode == "" {
		return fmt.Errorf("journal append: empty opcode")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
INSERT INTO call_log(id, opcode, op_name, outcome, status, duration_us, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, rec.ID, rec.Opcode, rec.OpName, string(rec.Outcome), rec.Status,
		rec.Duration.Microseconds(), rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	return nil
}

// Recent returns the newest records, newest first, capped at limit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, opcode, op_name, outcome, status, duration_us, created_at
FROM call_log
ORDER BY created_at DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent calls: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec        Record
			outcome    string
			durationUs int64
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.Opcode, &rec.OpName, &outcome, &rec.Status, &durationUs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		rec.Duration = time.Duration(durationUs) * time.Microsecond
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		rec.CreatedAt = ts
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Stats returns per-opcode aggregates over the whole journal, ordered by
// opcode.
func (j *Journal) Stats(ctx context.Context) ([]OpStats, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT opcode,
       MAX(op_name),
       COUNT(*),
       SUM(CASE WHEN outcome != 'ok' THEN 1 ELSE 0 END),
       AVG(duration_us),
       MAX(created_at)
FROM call_log
GROUP BY opcode
ORDER BY opcode;
`)
	if err != nil {
		return nil, fmt.Errorf("query op stats: %w", err)
	}
	defer rows.Close()

	var stats []OpStats
	for rows.Next() {
		var (
			s        OpStats
			lastCall string
		)
		if err := rows.Scan(&s.Opcode, &s.OpName, &s.Calls, &s.Failures, &s.AvgUs, &lastCall); err != nil {
			return nil, fmt.Errorf("scan op stats: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, lastCall)
		if err != nil {
			return nil, fmt.Errorf("parse last_call %q: %w", lastCall, err)
		}
		s.LastCall = ts
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
