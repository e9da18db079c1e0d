package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
)

type stageResultTableModel struct {
	ID        string         `db:"id"`
	RunID     string         `db:"run_id"`
	FixtureID string         `db:"fixture_id"`
	PlayerID  string         `db:"player_id"`
	Stage     string         `db:"stage"`
	Status    string         `db:"status"`
	InputRef  string         `db:"input_ref"`
	Payload   sql.NullString `db:"payload"`
	Error     string         `db:"error"`
	Attempts  int            `db:"attempts"`
	TokensIn  int            `db:"tokens_in"`
	TokensOut int            `db:"tokens_out"`
	CreatedAt time.Time      `db:"created_at"`
}

var stageResultColumns = qb.Columns(stageResultTableModel{})

// StageRepository is append-only; rows are never updated.
type StageRepository struct {
	db *sqlx.DB
}

func NewStageRepository(db *sqlx.DB) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) Append(ctx context.Context, result stage.Result) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid stage result: %w", err)
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row := stageResultTableModel{
		ID:        result.ID,
		RunID:     result.RunID,
		FixtureID: result.FixtureID,
		PlayerID:  result.PlayerID,
		Stage:     string(result.Stage),
		Status:    string(result.Status),
		InputRef:  result.InputRef,
		Error:     result.Error,
		Attempts:  result.Attempts,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
		CreatedAt: createdAt.UTC(),
	}
	if len(result.Payload) > 0 {
		row.Payload = sql.NullString{String: string(result.Payload), Valid: true}
	}

	insert, err := qb.InsertModels("stage_results", []stageResultTableModel{row})
	if err != nil {
		return fmt.Errorf("build append stage result model: %w", err)
	}
	query, args, err := insert.ToSQL()
	if err != nil {
		return fmt.Errorf("build append stage result query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append stage result: %w", err)
	}
	return nil
}

func (r *StageRepository) ListByRun(ctx context.Context, runID string, filter stage.Filter) ([]stage.Result, error) {
	conditions := []qb.Condition{qb.Eq("run_id", runID)}
	if filter.FixtureID != "" {
		conditions = append(conditions, qb.Eq("fixture_id", filter.FixtureID))
	}
	if filter.Stage != "" {
		conditions = append(conditions, qb.Eq("stage", string(filter.Stage)))
	}
	query, args, err := qb.Select(stageResultColumns...).
		From("stage_results").
		Where(conditions...).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list stage results query: %w", err)
	}

	var rows []stageResultTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}

	out := make([]stage.Result, 0, len(rows))
	for _, row := range rows {
		res := stage.Result{
			ID:        row.ID,
			RunID:     row.RunID,
			FixtureID: row.FixtureID,
			PlayerID:  row.PlayerID,
			Stage:     stage.Stage(row.Stage),
			Status:    stage.Status(row.Status),
			InputRef:  row.InputRef,
			Error:     row.Error,
			Attempts:  row.Attempts,
			TokensIn:  row.TokensIn,
			TokensOut: row.TokensOut,
			CreatedAt: row.CreatedAt,
		}
		if row.Payload.Valid {
			res.Payload = []byte(row.Payload.String)
		}
		out = append(out, res)
	}
	return out, nil
}
