package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/infrastructure/repository/memory"
)

func sharkOutput() stage.SharkOutput {
	sam := playerRef("p-1", "Sam")
	kai := playerRef("p-2", "Kai")
	high := stage.AlertCandidate{Player: sam, RiskTag: alert.RiskHigh, Explanation: "ruled out", Likelihood: 0.9}
	low := stage.AlertCandidate{Player: kai, RiskTag: alert.RiskLow, Explanation: "rotation", Likelihood: 0.3}
	return stage.SharkOutput{
		Fixture:   chainFixture,
		Threshold: alert.RiskMedium,
		Alerts:    []stage.AlertCandidate{high},
		Verdicts:  []stage.AlertCandidate{high, low},
		Assessed: []stage.AnalystOutput{
			{Player: sam, Likelihood: 0.9, Availability: "out", Rationale: "injury"},
			{Player: kai, Likelihood: 0.3, Availability: "doubtful", Rationale: "rotation"},
			{Player: playerRef("p-3", "Leo"), Likelihood: 0.05, Availability: "available", Rationale: "fit"},
		},
	}
}

func newTestSink(alerts alert.Repository, warehouse alert.Warehouse) *AlertSink {
	sink := NewAlertSink(alerts, warehouse, &sequenceIDs{prefix: "alert"}, testLogger)
	sink.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return sink
}

func TestAlertSink_Commit_IdempotentPerRun(t *testing.T) {
	t.Parallel()

	alerts := memory.NewAlertRepository()
	warehouse := memory.NewWarehouse()
	sink := newTestSink(alerts, warehouse)

	first, err := sink.Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput()})
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := sink.Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput()})
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}

	if alerts.Len() != 1 || warehouse.Len() != 1 {
		t.Fatalf("expected one alert row and one warehouse row, got %d and %d", alerts.Len(), warehouse.Len())
	}
	if first.WarehouseRows != 1 || second.WarehouseRows != 0 {
		t.Fatalf("expected warehouse insert once, got %d then %d", first.WarehouseRows, second.WarehouseRows)
	}

	stored, found, err := alerts.Find(t.Context(), alert.Key{PlayerID: "p-1", FixtureID: chainFixture.ID, RunID: "run-1"})
	if err != nil || !found {
		t.Fatalf("expected stored alert, found=%v err=%v", found, err)
	}
	if stored.ID != first.Alerts[0].ID {
		t.Fatalf("expected original alert id %s kept, got %s", first.Alerts[0].ID, stored.ID)
	}
}

func TestAlertSink_Commit_NewRunSupersedesPrevious(t *testing.T) {
	t.Parallel()

	alerts := memory.NewAlertRepository()
	sink := newTestSink(alerts, nil)

	if _, err := sink.Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput()}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	res, err := sink.Commit(t.Context(), CommitInput{RunID: "run-2", Shark: sharkOutput()})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if res.Deactivated != 1 {
		t.Fatalf("expected previous run alert deactivated, got %d", res.Deactivated)
	}

	active, err := NewAlertQueryService(alerts).ListActiveByFixture(t.Context(), chainFixture.ID)
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 1 || active[0].RunID != "run-2" {
		t.Fatalf("expected only run-2 alert active, got %+v", active)
	}
}

func TestAlertSink_Commit_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	alerts := memory.NewAlertRepository()
	warehouse := memory.NewWarehouse()
	res, err := newTestSink(alerts, warehouse).Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput(), DryRun: true})
	if err != nil {
		t.Fatalf("dry run commit failed: %v", err)
	}
	if len(res.Alerts) != 1 || !res.DryRun {
		t.Fatalf("expected computed alerts, got %+v", res)
	}
	if alerts.Len() != 0 || warehouse.Len() != 0 {
		t.Fatalf("expected no writes, got %d alerts and %d warehouse rows", alerts.Len(), warehouse.Len())
	}
}

func TestAlertSink_Commit_PushAllWritesEveryAssessedPlayer(t *testing.T) {
	t.Parallel()

	warehouse := memory.NewWarehouse()
	res, err := newTestSink(memory.NewAlertRepository(), warehouse).Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput(), PushAll: true})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if res.WarehouseRows != 3 || len(res.Alerts) != 1 {
		t.Fatalf("expected 3 warehouse rows and 1 alert, got %+v", res)
	}

	rows := warehouseRows(CommitInput{RunID: "run-1", Shark: sharkOutput(), PushAll: true}, time.Now())
	tags := map[string]alert.RiskTag{}
	for _, row := range rows {
		tags[row.PlayerID] = row.RiskTag
	}
	if tags["p-1"] != alert.RiskHigh || tags["p-2"] != alert.RiskLow || tags["p-3"] != alert.RiskNone {
		t.Fatalf("unexpected warehouse tags: %v", tags)
	}
}
