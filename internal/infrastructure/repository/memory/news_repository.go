package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
)

type NewsRepository struct {
	mu    sync.RWMutex
	items map[string]news.Item
}

func NewNewsRepository() *NewsRepository {
	return &NewsRepository{items: make(map[string]news.Item)}
}

func (r *NewsRepository) InsertIfAbsent(_ context.Context, items []news.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		key := item.PlayerID + "|" + item.URL
		if _, exists := r.items[key]; exists {
			continue
		}
		r.items[key] = item
	}
	return nil
}

func (r *NewsRepository) ListByPlayer(_ context.Context, playerID string, limit int) ([]news.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]news.Item, 0)
	for _, item := range r.items {
		if item.PlayerID == playerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
