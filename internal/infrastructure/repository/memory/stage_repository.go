package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
)

type StageRepository struct {
	mu      sync.RWMutex
	results []stage.Result
}

func NewStageRepository(results ...stage.Result) *StageRepository {
	return &StageRepository{results: append([]stage.Result(nil), results...)}
}

func (r *StageRepository) Append(_ context.Context, result stage.Result) error {
	if err := result.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result.Payload = append([]byte(nil), result.Payload...)
	r.results = append(r.results, result)
	return nil
}

func (r *StageRepository) ListByRun(_ context.Context, runID string, filter stage.Filter) ([]stage.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]stage.Result, 0)
	for _, item := range r.results {
		if item.RunID != runID {
			continue
		}
		if filter.FixtureID != "" && item.FixtureID != filter.FixtureID {
			continue
		}
		if filter.Stage != "" && item.Stage != filter.Stage {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *StageRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
