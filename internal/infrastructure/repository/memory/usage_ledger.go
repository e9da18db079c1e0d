package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
)

type UsageLedger struct {
	mu      sync.RWMutex
	records map[string][]usage.Record
}

func NewUsageLedger() *UsageLedger {
	return &UsageLedger{records: make(map[string][]usage.Record)}
}

func (l *UsageLedger) Append(_ context.Context, records []usage.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range records {
		l.records[rec.RunID] = append(l.records[rec.RunID], rec)
	}
	return nil
}

func (l *UsageLedger) ListByRun(_ context.Context, runID string) ([]usage.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]usage.Record(nil), l.records[runID]...), nil
}

func (l *UsageLedger) ListRuns(_ context.Context, limit int) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.records))
	for runID := range l.records {
		out = append(out, runID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
