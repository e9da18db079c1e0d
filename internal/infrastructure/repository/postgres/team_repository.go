package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

var teamColumns = qb.Columns(teamTableModel{})

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByName(ctx context.Context, league, name string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).
		From("teams").
		Where(
			qb.Eq("normalized_league", textnorm.Name(league)),
			qb.Eq("normalized_name", textnorm.Name(name)),
		).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team by name query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by name: %w", err)
	}
	return teamFromRow(row), true, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).
		From("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team by id query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by id: %w", err)
	}
	return teamFromRow(row), true, nil
}

func (r *TeamRepository) ListByLeague(ctx context.Context, league string) ([]team.Team, error) {
	query, args, err := qb.Select(teamColumns...).
		From("teams").
		Where(qb.Eq("normalized_league", textnorm.Name(league))).
		OrderBy("name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams by league: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row))
	}
	return out, nil
}

// Upsert keeps the stored id and sync time of an existing team and refreshes its provider ids.
func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) (team.Team, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("invalid team: %w", err)
	}

	insert, err := qb.InsertModels("teams", []teamInsertModel{{
		ID:               item.ID,
		Name:             item.Name,
		NormalizedName:   textnorm.Name(item.Name),
		League:           item.League,
		NormalizedLeague: textnorm.Name(item.League),
		Country:          item.Country,
		ExternalID:       item.ExternalID,
		ExternalSlug:     item.ExternalSlug,
	}})
	if err != nil {
		return team.Team{}, fmt.Errorf("build upsert team model: %w", err)
	}
	query, args, err := insert.
		OnConflict("normalized_league", "normalized_name").
		DoUpdate("country", "external_id", "external_slug").
		Returning(teamColumns...).
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build upsert team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return team.Team{}, fmt.Errorf("upsert team: %w", err)
	}
	return teamFromRow(row), nil
}

func (r *TeamRepository) MarkSynced(ctx context.Context, teamID string, at time.Time) error {
	return markTeamSynced(ctx, r.db, teamID, at)
}

func markTeamSynced(ctx context.Context, db sqlx.ExecerContext, teamID string, at time.Time) error {
	query, args, err := qb.Update("teams").
		Set("last_synced_at", at.UTC()).
		SetNow("updated_at").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark team synced query: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark team synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark team synced: team %s not found", teamID)
	}
	return nil
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:           row.ID,
		Name:         row.Name,
		League:       row.League,
		Country:      row.Country,
		ExternalID:   row.ExternalID,
		ExternalSlug: row.ExternalSlug,
		LastSyncedAt: nullTimeToPtr(row.LastSyncedAt),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
