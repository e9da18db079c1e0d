package pipelinerun

import (
	"fmt"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
)

type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDryRun Mode = "dry_run"
)

// Kind records which entry point started the run.
type Kind string

const (
	KindBatch      Kind = "batch"
	KindSingle     Kind = "single"
	KindStep       Kind = "step"
	KindEnrichOnly Kind = "enrich_only"
)

// FixtureState is the per-fixture state machine within a run.
type FixtureState string

const (
	StatePending       FixtureState = "pending"
	StateRosterSyncing FixtureState = "roster_syncing"
	StateResearching   FixtureState = "researching"
	StateAnalyzing     FixtureState = "analyzing"
	StateScoring       FixtureState = "scoring"
	StatePersisting    FixtureState = "persisting"
	StateCompleted     FixtureState = "completed"
	StateFailed        FixtureState = "failed"

	// StageCancelled is the failed stage recorded when a run is cancelled mid-fixture.
	StageCancelled FixtureState = "cancelled"
)

var stateOrder = map[FixtureState]int{
	StatePending:       0,
	StateRosterSyncing: 1,
	StateResearching:   2,
	StateAnalyzing:     3,
	StateScoring:       4,
	StatePersisting:    5,
	StateCompleted:     6,
}

func (s FixtureState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition allows forward moves along the chain (steps may be skipped when a run enters
// mid-chain) and a move to failed from any non-terminal state.
func CanTransition(from, to FixtureState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	fromIdx, okFrom := stateOrder[from]
	toIdx, okTo := stateOrder[to]
	return okFrom && okTo && toIdx > fromIdx
}

// FixtureOutcome is one fixture's entry in the run ledger.
type FixtureOutcome struct {
	Fixture     fixture.Fixture
	State       FixtureState
	FailedStage FixtureState
	ReasonCode  string
	Reason      string
	Players     int
	Alerts      int
	Excluded    int
	UpdatedAt   time.Time
}

func NewOutcome(f fixture.Fixture, now time.Time) FixtureOutcome {
	return FixtureOutcome{Fixture: f, State: StatePending, UpdatedAt: now}
}

func (o *FixtureOutcome) Transition(to FixtureState, now time.Time) error {
	if !CanTransition(o.State, to) {
		return fmt.Errorf("invalid fixture transition %s -> %s", o.State, to)
	}
	o.State = to
	o.UpdatedAt = now
	return nil
}

// Fail moves the outcome to failed, recording the stage it failed in.
func (o *FixtureOutcome) Fail(stage FixtureState, code, reason string, now time.Time) {
	if o.State.Terminal() {
		return
	}
	o.FailedStage = stage
	o.ReasonCode = code
	o.Reason = reason
	o.State = StateFailed
	o.UpdatedAt = now
}

// Run is one execution of the orchestrator; ID is the idempotency and resume key.
type Run struct {
	ID         string
	Mode       Mode
	Kind       Kind
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcomes   []FixtureOutcome
}

func (r Run) Counts() (completed, failed int) {
	for _, o := range r.Outcomes {
		switch o.State {
		case StateCompleted:
			completed++
		case StateFailed:
			failed++
		}
	}
	return completed, failed
}
