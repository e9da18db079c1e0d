package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
)

// RosterRepository keeps entries per team. ApplySync stamps the team through the linked
// TeamRepository, mirroring the single transaction of the SQL store.
type RosterRepository struct {
	mu      sync.RWMutex
	teams   *TeamRepository
	entries map[string]map[string]roster.Entry
	writes  int
}

func NewRosterRepository(teams *TeamRepository, entries ...roster.Entry) *RosterRepository {
	r := &RosterRepository{teams: teams, entries: make(map[string]map[string]roster.Entry)}
	for _, e := range entries {
		r.putLocked(e)
	}
	return r
}

func (r *RosterRepository) ListByTeam(_ context.Context, teamID string, includeInactive bool) ([]roster.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]roster.Entry, 0, len(r.entries[teamID]))
	for _, e := range r.entries[teamID] {
		if e.Active || includeInactive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RosterRepository) ApplySync(_ context.Context, teamID string, change roster.Change, syncedAt time.Time) error {
	all := make([]roster.Entry, 0, len(change.Insert)+len(change.Reactivate)+len(change.Deactivate)+len(change.Update))
	all = append(all, change.Insert...)
	all = append(all, change.Reactivate...)
	all = append(all, change.Deactivate...)
	all = append(all, change.Update...)
	for _, e := range all {
		if e.TeamID != teamID {
			return fmt.Errorf("roster entry %s belongs to team %s, not %s", e.ID, e.TeamID, teamID)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range all {
		r.putLocked(e)
		r.writes++
	}
	if r.teams != nil {
		r.teams.mu.Lock()
		r.teams.markSyncedLocked(teamID, syncedAt)
		r.teams.mu.Unlock()
	}
	return nil
}

// Writes counts entry rows written by ApplySync.
func (r *RosterRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

func (r *RosterRepository) putLocked(e roster.Entry) {
	byID, ok := r.entries[e.TeamID]
	if !ok {
		byID = make(map[string]roster.Entry)
		r.entries[e.TeamID] = byID
	}
	byID[e.ID] = e
}
