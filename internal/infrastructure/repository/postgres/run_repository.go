package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
)

var (
	pipelineRunColumns    = qb.Columns(pipelineRunTableModel{})
	fixtureOutcomeColumns = qb.Columns(fixtureOutcomeTableModel{})
)

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run pipelinerun.Run) error {
	insert, err := qb.InsertModels("pipeline_runs", []pipelineRunTableModel{{
		ID:         run.ID,
		Mode:       string(run.Mode),
		Kind:       string(run.Kind),
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: nullableTime(run.FinishedAt),
	}})
	if err != nil {
		return fmt.Errorf("build create run model: %w", err)
	}
	query, args, err := insert.OnConflict("id").DoNothing().ToSQL()
	if err != nil {
		return fmt.Errorf("build create run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepository) SaveOutcome(ctx context.Context, runID string, outcome pipelinerun.FixtureOutcome) error {
	updatedAt := outcome.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	insert, err := qb.InsertModels("fixture_outcomes", []fixtureOutcomeTableModel{{
		RunID:       runID,
		FixtureID:   outcome.Fixture.ID,
		League:      outcome.Fixture.League,
		HomeTeam:    outcome.Fixture.HomeTeam,
		AwayTeam:    outcome.Fixture.AwayTeam,
		KickoffAt:   outcome.Fixture.KickoffAt.UTC(),
		State:       string(outcome.State),
		FailedStage: string(outcome.FailedStage),
		ReasonCode:  outcome.ReasonCode,
		Reason:      outcome.Reason,
		Players:     outcome.Players,
		Alerts:      outcome.Alerts,
		Excluded:    outcome.Excluded,
		UpdatedAt:   updatedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("build save outcome model: %w", err)
	}
	query, args, err := insert.
		OnConflict("run_id", "fixture_id").
		DoUpdate("state", "failed_stage", "reason_code", "reason", "players", "alerts", "excluded", "updated_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build save outcome query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save fixture outcome: %w", err)
	}
	return nil
}

func (r *RunRepository) Finish(ctx context.Context, runID string, at time.Time) error {
	query, args, err := qb.Update("pipeline_runs").
		Set("finished_at", at.UTC()).
		Where(qb.Eq("id", runID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build finish run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (r *RunRepository) Get(ctx context.Context, runID string) (pipelinerun.Run, bool, error) {
	query, args, err := qb.Select(pipelineRunColumns...).
		From("pipeline_runs").
		Where(qb.Eq("id", runID)).
		ToSQL()
	if err != nil {
		return pipelinerun.Run{}, false, fmt.Errorf("build get run query: %w", err)
	}

	var row pipelineRunTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pipelinerun.Run{}, false, nil
		}
		return pipelinerun.Run{}, false, fmt.Errorf("get run: %w", err)
	}

	outcomesQuery, outcomesArgs, err := qb.Select(fixtureOutcomeColumns...).
		From("fixture_outcomes").
		Where(qb.Eq("run_id", runID)).
		OrderBy("kickoff_at", "league", "fixture_id").
		ToSQL()
	if err != nil {
		return pipelinerun.Run{}, false, fmt.Errorf("build get run outcomes query: %w", err)
	}

	var outcomeRows []fixtureOutcomeTableModel
	if err := r.db.SelectContext(ctx, &outcomeRows, outcomesQuery, outcomesArgs...); err != nil {
		return pipelinerun.Run{}, false, fmt.Errorf("get run outcomes: %w", err)
	}

	run := pipelinerun.Run{
		ID:         row.ID,
		Mode:       pipelinerun.Mode(row.Mode),
		Kind:       pipelinerun.Kind(row.Kind),
		StartedAt:  row.StartedAt,
		FinishedAt: nullTimeToPtr(row.FinishedAt),
		Outcomes:   make([]pipelinerun.FixtureOutcome, 0, len(outcomeRows)),
	}
	for _, o := range outcomeRows {
		run.Outcomes = append(run.Outcomes, pipelinerun.FixtureOutcome{
			Fixture: fixture.Fixture{
				ID:        o.FixtureID,
				League:    o.League,
				HomeTeam:  o.HomeTeam,
				AwayTeam:  o.AwayTeam,
				KickoffAt: o.KickoffAt,
			},
			State:       pipelinerun.FixtureState(o.State),
			FailedStage: pipelinerun.FixtureState(o.FailedStage),
			ReasonCode:  o.ReasonCode,
			Reason:      o.Reason,
			Players:     o.Players,
			Alerts:      o.Alerts,
			Excluded:    o.Excluded,
			UpdatedAt:   o.UpdatedAt,
		})
	}
	return run, true, nil
}
