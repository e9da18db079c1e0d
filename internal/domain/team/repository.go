package team

import (
	"context"
	"time"
)

// Repository describes team persistence needs from use cases.
type Repository interface {
	GetByName(ctx context.Context, league, name string) (Team, bool, error)
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	ListByLeague(ctx context.Context, league string) ([]Team, error)
	// Upsert is unique on (league, normalized name) and returns the stored row.
	Upsert(ctx context.Context, item Team) (Team, error)
	MarkSynced(ctx context.Context, teamID string, at time.Time) error
}
