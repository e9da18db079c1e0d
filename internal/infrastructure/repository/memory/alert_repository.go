package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
)

type AlertRepository struct {
	mu     sync.RWMutex
	byKey  map[alert.Key]alert.Alert
	writes int
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{byKey: make(map[alert.Key]alert.Alert)}
}

// CommitFixture validates every alert before touching state, so a bad row leaves nothing behind.
func (r *AlertRepository) CommitFixture(_ context.Context, runID, fixtureID string, alerts []alert.Alert) (alert.CommitStats, error) {
	for _, item := range alerts {
		if err := item.Validate(); err != nil {
			return alert.CommitStats{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stats alert.CommitStats
	for key, item := range r.byKey {
		if item.FixtureID == fixtureID && item.RunID != runID && item.Active {
			item.Active = false
			r.byKey[key] = item
			stats.Deactivated++
		}
	}
	for _, item := range alerts {
		key := item.Key()
		if existing, ok := r.byKey[key]; ok {
			item.ID = existing.ID
			item.CreatedAt = existing.CreatedAt
			item.Acknowledged = existing.Acknowledged
		}
		r.byKey[key] = item
		stats.Upserted++
		r.writes++
	}
	return stats, nil
}

func (r *AlertRepository) Find(_ context.Context, key alert.Key) (alert.Alert, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byKey[key]
	return item, ok, nil
}

func (r *AlertRepository) ListByRun(_ context.Context, runID string) ([]alert.Alert, error) {
	return r.filter(func(a alert.Alert) bool { return a.RunID == runID }), nil
}

func (r *AlertRepository) ListActiveByFixture(_ context.Context, fixtureID string) ([]alert.Alert, error) {
	return r.filter(func(a alert.Alert) bool { return a.Active && a.FixtureID == fixtureID }), nil
}

func (r *AlertRepository) ListActiveByFixtures(_ context.Context, fixtureIDs []string) ([]alert.Alert, error) {
	want := make(map[string]struct{}, len(fixtureIDs))
	for _, v := range fixtureIDs {
		want[v] = struct{}{}
	}
	return r.filter(func(a alert.Alert) bool {
		_, ok := want[a.FixtureID]
		return a.Active && ok
	}), nil
}

func (r *AlertRepository) Acknowledge(_ context.Context, alertID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, item := range r.byKey {
		if item.ID == alertID {
			item.Acknowledged = true
			r.byKey[key] = item
			return true, nil
		}
	}
	return false, nil
}

// Len is the number of stored alert rows.
func (r *AlertRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

func (r *AlertRepository) filter(keep func(alert.Alert) bool) []alert.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]alert.Alert, 0)
	for _, item := range r.byKey {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskTag.Rank() != out[j].RiskTag.Rank() {
			return out[i].RiskTag.Rank() > out[j].RiskTag.Rank()
		}
		return out[i].PlayerName < out[j].PlayerName
	})
	return out
}

// Warehouse is an in-memory alert.Warehouse keyed by (run, fixture, player).
type Warehouse struct {
	mu   sync.Mutex
	rows map[[3]string]alert.WarehouseRow
	err  error
}

func NewWarehouse() *Warehouse {
	return &Warehouse{rows: make(map[[3]string]alert.WarehouseRow)}
}

// FailWith makes every following Push return err; nil restores normal behavior.
func (w *Warehouse) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *Warehouse) Push(_ context.Context, rows []alert.WarehouseRow) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return 0, w.err
	}
	inserted := 0
	for _, row := range rows {
		key := [3]string{row.RunID, row.FixtureID, row.PlayerID}
		if _, exists := w.rows[key]; exists {
			continue
		}
		w.rows[key] = row
		inserted++
	}
	return inserted, nil
}

func (w *Warehouse) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}
