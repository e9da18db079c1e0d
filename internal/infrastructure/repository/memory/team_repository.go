package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

type TeamRepository struct {
	mu    sync.RWMutex
	byKey map[string]team.Team
}

func NewTeamRepository(teams ...team.Team) *TeamRepository {
	r := &TeamRepository{byKey: make(map[string]team.Team, len(teams))}
	for _, item := range teams {
		r.byKey[item.Key()] = item
	}
	return r
}

func (r *TeamRepository) GetByName(_ context.Context, league, name string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byKey[team.Key(league, name)]
	return item, ok, nil
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.byKey {
		if item.ID == teamID {
			return item, true, nil
		}
	}
	return team.Team{}, false, nil
}

func (r *TeamRepository) ListByLeague(_ context.Context, league string) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := textnorm.Name(league)
	out := make([]team.Team, 0)
	for _, item := range r.byKey {
		if textnorm.Name(item.League) == want {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TeamRepository) Upsert(_ context.Context, item team.Team) (team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := item.Key()
	if existing, ok := r.byKey[key]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		if item.LastSyncedAt == nil {
			item.LastSyncedAt = existing.LastSyncedAt
		}
	}
	item.Name = strings.TrimSpace(item.Name)
	r.byKey[key] = item
	return item, nil
}

func (r *TeamRepository) MarkSynced(_ context.Context, teamID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markSyncedLocked(teamID, at)
	return nil
}

func (r *TeamRepository) markSyncedLocked(teamID string, at time.Time) {
	for key, item := range r.byKey {
		if item.ID == teamID {
			synced := at
			item.LastSyncedAt = &synced
			item.UpdatedAt = at
			r.byKey[key] = item
			return
		}
	}
}
