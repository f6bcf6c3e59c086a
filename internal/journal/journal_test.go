package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/opgate/internal/storage"
)

func setupTestJournal(t *testing.T) (*Journal, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db), db
}

func TestAppendAndRecent(t *testing.T) {
	j, _ := setupTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &Record{
			Opcode:    "00000001",
			OpName:    "echo",
			Outcome:   OutcomeOK,
			Status:    0,
			Duration:  120 * time.Microsecond,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := j.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("Append left ID empty")
		}
	}

	recs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(recs))
	}
	if !recs[0].CreatedAt.After(recs[1].CreatedAt) {
		t.Error("Recent not ordered newest first")
	}
	if recs[0].Duration != 120*time.Microsecond {
		t.Errorf("duration = %v, want 120µs", recs[0].Duration)
	}
}

func TestAppendRejectsEmptyOpcode(t *testing.T) {
	j, _ := setupTestJournal(t)
	if err := j.Append(context.Background(), &Record{OpName: "x"}); err == nil {
		t.Error("Append accepted record without opcode")
	}
}

func TestStats(t *testing.T) {
	j, _ := setupTestJournal(t)
	ctx := context.Background()

	records := []*Record{
		{Opcode: "00000001", OpName: "echo", Outcome: OutcomeOK, Duration: 100 * time.Microsecond},
		{Opcode: "00000001", OpName: "echo", Outcome: OutcomeInvalidArgs, Duration: 300 * time.Microsecond},
		{Opcode: "00000002", OpName: "ping", Outcome: OutcomeOK, Duration: 50 * time.Microsecond},
	}
	for _, rec := range records {
		if err := j.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Stats returned %d rows, want 2", len(stats))
	}

	echo := stats[0]
	if echo.Opcode != "00000001" || echo.Calls != 2 || echo.Failures != 1 {
		t.Errorf("echo stats = %+v", echo)
	}
	if echo.AvgUs != 200 {
		t.Errorf("echo avg = %v, want 200", echo.AvgUs)
	}

	ping := stats[1]
	if ping.Opcode != "00000002" || ping.Calls != 1 || ping.Failures != 0 {
		t.Errorf("ping stats = %+v", ping)
	}
}
