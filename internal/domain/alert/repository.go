package alert

import (
	"context"
	"time"
)

type CommitStats struct {
	Upserted    int
	Deactivated int
}

// Repository describes transactional alert storage.
type Repository interface {
	// CommitFixture upserts alerts for one fixture and run in a single transaction and marks
	// alerts of other runs for the same fixture inactive. All rows commit or none do.
	CommitFixture(ctx context.Context, runID, fixtureID string, alerts []Alert) (CommitStats, error)
	Find(ctx context.Context, key Key) (Alert, bool, error)
	ListByRun(ctx context.Context, runID string) ([]Alert, error)
	ListActiveByFixture(ctx context.Context, fixtureID string) ([]Alert, error)
	ListActiveByFixtures(ctx context.Context, fixtureIDs []string) ([]Alert, error)
	Acknowledge(ctx context.Context, alertID string) (bool, error)
}

// WarehouseRow is the denormalized analytical copy of an assessed player.
type WarehouseRow struct {
	RunID       string
	FixtureID   string
	FixtureName string
	League      string
	KickoffAt   time.Time
	PlayerID    string
	PlayerName  string
	TeamName    string
	Position    string
	RiskTag     RiskTag
	Explanation string
	Likelihood  float64
	PushedAt    time.Time
}

// Warehouse is an append-only analytical sink. Pushing the same (run, fixture, player) twice
// keeps the first row.
type Warehouse interface {
	Push(ctx context.Context, rows []WarehouseRow) (int, error)
}
