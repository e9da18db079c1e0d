package pipelinerun

import (
	"context"
	"time"
)

// Repository persists runs and their fixture ledger.
type Repository interface {
	// Create inserts the run or, for an existing id, leaves the original start time in place.
	Create(ctx context.Context, run Run) error
	SaveOutcome(ctx context.Context, runID string, outcome FixtureOutcome) error
	Finish(ctx context.Context, runID string, at time.Time) error
	Get(ctx context.Context, runID string) (Run, bool, error)
}
