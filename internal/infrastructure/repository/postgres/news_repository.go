package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
)

type newsItemTableModel struct {
	ID          string       `db:"id"`
	PlayerID    string       `db:"player_id"`
	Source      string       `db:"source"`
	URL         string       `db:"url"`
	Title       string       `db:"title"`
	Snippet     string       `db:"snippet"`
	PublishedAt sql.NullTime `db:"published_at"`
	FetchedAt   time.Time    `db:"fetched_at"`
}

var newsItemColumns = qb.Columns(newsItemTableModel{})

type NewsRepository struct {
	db *sqlx.DB
}

func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// InsertIfAbsent never touches a stored item; duplicates on (player_id, url) are ignored.
func (r *NewsRepository) InsertIfAbsent(ctx context.Context, items []news.Item) error {
	rows := make([]newsItemTableModel, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid news item: %w", err)
		}
		key := item.PlayerID + "|" + item.URL
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		fetchedAt := item.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now()
		}
		rows = append(rows, newsItemTableModel{
			ID:          id,
			PlayerID:    item.PlayerID,
			Source:      item.Source,
			URL:         item.URL,
			Title:       item.Title,
			Snippet:     item.Snippet,
			PublishedAt: zeroableTime(item.PublishedAt),
			FetchedAt:   fetchedAt.UTC(),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	insert, err := qb.InsertModels("news_items", rows)
	if err != nil {
		return fmt.Errorf("build insert news model: %w", err)
	}
	query, args, err := insert.OnConflict("player_id", "url").DoNothing().ToSQL()
	if err != nil {
		return fmt.Errorf("build insert news query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert news items: %w", err)
	}
	return nil
}

func (r *NewsRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]news.Item, error) {
	query, args, err := qb.Select(newsItemColumns...).
		From("news_items").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("published_at DESC NULLS LAST", "fetched_at DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list news query: %w", err)
	}

	var rows []newsItemTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list news by player: %w", err)
	}

	out := make([]news.Item, 0, len(rows))
	for _, row := range rows {
		item := news.Item{
			ID:        row.ID,
			PlayerID:  row.PlayerID,
			Source:    row.Source,
			URL:       row.URL,
			Title:     row.Title,
			Snippet:   row.Snippet,
			FetchedAt: row.FetchedAt,
		}
		if row.PublishedAt.Valid {
			item.PublishedAt = row.PublishedAt.Time
		}
		out = append(out, item)
	}
	return out, nil
}
