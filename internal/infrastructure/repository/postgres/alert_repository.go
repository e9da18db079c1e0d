package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
)

var alertColumns = qb.Columns(alertTableModel{})

const alertOrder = "CASE risk_tag WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC"

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CommitFixture deactivates alerts from other runs for the fixture and upserts this run's alerts.
// Both statements share one transaction.
func (r *AlertRepository) CommitFixture(ctx context.Context, runID, fixtureID string, alerts []alert.Alert) (alert.CommitStats, error) {
	now := time.Now().UTC()
	rows := make([]alertUpsertModel, 0, len(alerts))
	for _, a := range alerts {
		if a.RunID != runID || a.FixtureID != fixtureID {
			return alert.CommitStats{}, fmt.Errorf("alert for player %s does not belong to run %s fixture %s", a.PlayerID, runID, fixtureID)
		}
		if err := a.Validate(); err != nil {
			return alert.CommitStats{}, fmt.Errorf("invalid alert: %w", err)
		}
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, alertUpsertModel{
			ID:          a.ID,
			PlayerID:    a.PlayerID,
			PlayerName:  a.PlayerName,
			TeamID:      a.TeamID,
			TeamName:    a.TeamName,
			FixtureID:   a.FixtureID,
			RunID:       a.RunID,
			RiskTag:     string(a.RiskTag),
			Explanation: a.Explanation,
			Likelihood:  a.Likelihood,
			Active:      true,
			CreatedAt:   createdAt.UTC(),
			UpdatedAt:   now,
		})
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return alert.CommitStats{}, fmt.Errorf("begin tx commit fixture alerts: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stats alert.CommitStats

	deactivate, deactivateArgs, err := qb.Update("alerts").
		Set("active", false).
		Set("updated_at", now).
		Where(
			qb.Eq("fixture_id", fixtureID),
			qb.Neq("run_id", runID),
			qb.Eq("active", true),
		).
		ToSQL()
	if err != nil {
		return alert.CommitStats{}, fmt.Errorf("build deactivate alerts query: %w", err)
	}
	res, err := tx.ExecContext(ctx, deactivate, deactivateArgs...)
	if err != nil {
		return alert.CommitStats{}, fmt.Errorf("deactivate superseded alerts: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Deactivated = int(n)
	}

	if len(rows) > 0 {
		insert, err := qb.InsertModels("alerts", rows)
		if err != nil {
			return alert.CommitStats{}, fmt.Errorf("build upsert alerts model: %w", err)
		}
		query, args, err := insert.
			OnConflict("player_id", "fixture_id", "run_id").
			DoUpdate("player_name", "team_id", "team_name", "risk_tag", "explanation", "likelihood", "active", "updated_at").
			ToSQL()
		if err != nil {
			return alert.CommitStats{}, fmt.Errorf("build upsert alerts query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return alert.CommitStats{}, fmt.Errorf("upsert alerts: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stats.Upserted = int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return alert.CommitStats{}, fmt.Errorf("commit fixture alerts tx: %w", err)
	}
	return stats, nil
}

func (r *AlertRepository) Find(ctx context.Context, key alert.Key) (alert.Alert, bool, error) {
	query, args, err := qb.Select(alertColumns...).
		From("alerts").
		Where(
			qb.Eq("player_id", key.PlayerID),
			qb.Eq("fixture_id", key.FixtureID),
			qb.Eq("run_id", key.RunID),
		).
		ToSQL()
	if err != nil {
		return alert.Alert{}, false, fmt.Errorf("build find alert query: %w", err)
	}

	var row alertTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return alert.Alert{}, false, nil
		}
		return alert.Alert{}, false, fmt.Errorf("find alert: %w", err)
	}
	return alertFromRow(row), true, nil
}

func (r *AlertRepository) ListByRun(ctx context.Context, runID string) ([]alert.Alert, error) {
	return r.list(ctx, "list alerts by run", qb.Eq("run_id", runID))
}

func (r *AlertRepository) ListActiveByFixture(ctx context.Context, fixtureID string) ([]alert.Alert, error) {
	return r.list(ctx, "list active alerts by fixture", qb.Eq("fixture_id", fixtureID), qb.Eq("active", true))
}

func (r *AlertRepository) ListActiveByFixtures(ctx context.Context, fixtureIDs []string) ([]alert.Alert, error) {
	if len(fixtureIDs) == 0 {
		return []alert.Alert{}, nil
	}
	return r.list(ctx, "list active alerts by fixtures", qb.In("fixture_id", fixtureIDs), qb.Eq("active", true))
}

func (r *AlertRepository) Acknowledge(ctx context.Context, alertID string) (bool, error) {
	query, args, err := qb.Update("alerts").
		Set("acknowledged", true).
		SetNow("updated_at").
		Where(qb.Eq("id", alertID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build acknowledge alert query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acknowledge alert rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *AlertRepository) list(ctx context.Context, op string, conditions ...qb.Condition) ([]alert.Alert, error) {
	query, args, err := qb.Select(alertColumns...).
		From("alerts").
		Where(conditions...).
		OrderBy("fixture_id", alertOrder, "player_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []alertTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]alert.Alert, 0, len(rows))
	for _, row := range rows {
		out = append(out, alertFromRow(row))
	}
	return out, nil
}

func alertFromRow(row alertTableModel) alert.Alert {
	return alert.Alert{
		ID:           row.ID,
		PlayerID:     row.PlayerID,
		PlayerName:   row.PlayerName,
		TeamID:       row.TeamID,
		TeamName:     row.TeamName,
		FixtureID:    row.FixtureID,
		RunID:        row.RunID,
		RiskTag:      alert.RiskTag(row.RiskTag),
		Explanation:  row.Explanation,
		Likelihood:   row.Likelihood,
		Active:       row.Active,
		Acknowledged: row.Acknowledged,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
