package news

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Item is a piece of content about a player. Stored items are never modified.
type Item struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"player_id"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.PlayerID) == "" {
		return fmt.Errorf("news item player id is required")
	}
	if strings.TrimSpace(i.URL) == "" {
		return fmt.Errorf("news item url is required")
	}

	return nil
}

type Query struct {
	PlayerName string
	TeamName   string
	Since      time.Time
	Limit      int
}

// Provider searches an external news source. No results is not an error.
type Provider interface {
	Search(ctx context.Context, query Query) ([]Item, error)
}

// Repository stores items insert-only, keyed by (player id, url).
type Repository interface {
	InsertIfAbsent(ctx context.Context, items []Item) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Item, error)
}
