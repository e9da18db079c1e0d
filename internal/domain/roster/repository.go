package roster

import (
	"context"
	"time"
)

// Repository describes roster persistence. Entries are only ever flipped inactive, never removed.
type Repository interface {
	ListByTeam(ctx context.Context, teamID string, includeInactive bool) ([]Entry, error)
	// ApplySync writes change atomically and stamps the team's last sync time.
	ApplySync(ctx context.Context, teamID string, change Change, syncedAt time.Time) error
}
