package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
)

type RunRepository struct {
	mu   sync.RWMutex
	runs map[string]pipelinerun.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]pipelinerun.Run)}
}

func (r *RunRepository) Create(_ context.Context, run pipelinerun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; exists {
		return nil
	}
	run.Outcomes = nil
	r.runs[run.ID] = run
	return nil
}

func (r *RunRepository) SaveOutcome(_ context.Context, runID string, outcome pipelinerun.FixtureOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runs[runID]
	run.ID = runID
	for i := range run.Outcomes {
		if run.Outcomes[i].Fixture.ID == outcome.Fixture.ID {
			run.Outcomes[i] = outcome
			r.runs[runID] = run
			return nil
		}
	}
	run.Outcomes = append(run.Outcomes, outcome)
	r.runs[runID] = run
	return nil
}

func (r *RunRepository) Finish(_ context.Context, runID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return nil
	}
	finished := at
	run.FinishedAt = &finished
	r.runs[runID] = run
	return nil
}

func (r *RunRepository) Get(_ context.Context, runID string) (pipelinerun.Run, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[runID]
	if !ok {
		return pipelinerun.Run{}, false, nil
	}
	run.Outcomes = append([]pipelinerun.FixtureOutcome(nil), run.Outcomes...)
	return run, true, nil
}
