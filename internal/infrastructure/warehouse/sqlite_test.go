package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
)

func openTestWarehouse(t *testing.T) *SQLite {
	t.Helper()

	w, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "warehouse.db"))
	if err != nil {
		t.Fatalf("open warehouse: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func warehouseRows(runID string) []alert.WarehouseRow {
	kickoff := time.Date(2026, 10, 25, 14, 0, 0, 0, time.UTC)
	return []alert.WarehouseRow{
		{RunID: runID, FixtureID: "fx-1", FixtureName: "Arsenal vs Chelsea", League: "Premier League", KickoffAt: kickoff, PlayerID: "p1", PlayerName: "Bukayo Saka", TeamName: "Arsenal", Position: "Right Winger", RiskTag: alert.RiskHigh, Explanation: "hamstring", Likelihood: 0.8},
		{RunID: runID, FixtureID: "fx-1", FixtureName: "Arsenal vs Chelsea", League: "Premier League", KickoffAt: kickoff, PlayerID: "p2", PlayerName: "Cole Palmer", TeamName: "Chelsea", RiskTag: alert.RiskNone, Explanation: "fit"},
	}
}

func TestSQLite_PushIsIdempotentPerRun(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	ctx := context.Background()

	inserted, err := w.Push(ctx, warehouseRows("r1"))
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}

	again := warehouseRows("r1")
	again[0].Explanation = "changed"
	inserted, err = w.Push(ctx, again)
	if err != nil {
		t.Fatalf("push again: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected repeated push to insert nothing, got %d", inserted)
	}

	rows, err := w.ListByFixture(ctx, "fx-1")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.PlayerID == "p1" && row.Explanation != "hamstring" {
			t.Fatalf("expected first row to be kept, got %q", row.Explanation)
		}
	}
}

func TestSQLite_NewRunAppends(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	ctx := context.Background()

	if _, err := w.Push(ctx, warehouseRows("r1")); err != nil {
		t.Fatalf("push r1: %v", err)
	}
	inserted, err := w.Push(ctx, warehouseRows("r2"))
	if err != nil {
		t.Fatalf("push r2: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted for new run, got %d", inserted)
	}

	rows, err := w.ListByFixture(ctx, "fx-1")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows across runs, got %d", len(rows))
	}
	if !rows[0].KickoffAt.Equal(time.Date(2026, 10, 25, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected kickoff: %v", rows[0].KickoffAt)
	}
	if rows[0].PushedAt.IsZero() {
		t.Fatalf("expected pushed_at to be stamped")
	}
}

func TestSQLite_PushEmpty(t *testing.T) {
	t.Parallel()

	w := openTestWarehouse(t)
	inserted, err := w.Push(context.Background(), nil)
	if err != nil || inserted != 0 {
		t.Fatalf("expected no-op push, got %d %v", inserted, err)
	}
}

func TestSQLite_ReopenKeepsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "warehouse.db")
	ctx := context.Background()

	w, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := w.Push(ctx, warehouseRows("r1")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	rows, err := reopened.ListByFixture(ctx, "fx-1")
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected rows to survive reopen, got %d", len(rows))
	}
}
