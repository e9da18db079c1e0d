package pipelinerun

import (
	"testing"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to FixtureState
		want     bool
	}{
		{StatePending, StateRosterSyncing, true},
		{StateRosterSyncing, StateResearching, true},
		{StatePending, StatePersisting, true},
		{StateScoring, StateResearching, false},
		{StateAnalyzing, StateFailed, true},
		{StateCompleted, StateFailed, false},
		{StateFailed, StatePersisting, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestFixtureOutcome_FailIsTerminal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	o := NewOutcome(fixture.Fixture{ID: "f1"}, now)
	if err := o.Transition(StateRosterSyncing, now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	o.Fail(StateRosterSyncing, "team_not_found", "no match for Arsenal", now)
	if o.State != StateFailed || o.FailedStage != StateRosterSyncing {
		t.Fatalf("unexpected outcome %+v", o)
	}

	o.Fail(StatePersisting, "persistence", "ignored", now)
	if o.FailedStage != StateRosterSyncing {
		t.Fatalf("fail must not overwrite a terminal outcome")
	}
	if err := o.Transition(StateResearching, now); err == nil {
		t.Fatalf("expected transition out of failed to be rejected")
	}
}

func TestRun_Counts(t *testing.T) {
	t.Parallel()

	run := Run{Outcomes: []FixtureOutcome{
		{State: StateCompleted},
		{State: StateFailed},
		{State: StateCompleted},
	}}
	completed, failed := run.Counts()
	if completed != 2 || failed != 1 {
		t.Fatalf("unexpected counts %d/%d", completed, failed)
	}
}
