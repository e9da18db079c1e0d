package postgres

import (
	"database/sql"
	"time"
)

type pipelineRunTableModel struct {
	ID         string       `db:"id"`
	Mode       string       `db:"mode"`
	Kind       string       `db:"kind"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
}

type fixtureOutcomeTableModel struct {
	RunID       string    `db:"run_id"`
	FixtureID   string    `db:"fixture_id"`
	League      string    `db:"league"`
	HomeTeam    string    `db:"home_team"`
	AwayTeam    string    `db:"away_team"`
	KickoffAt   time.Time `db:"kickoff_at"`
	State       string    `db:"state"`
	FailedStage string    `db:"failed_stage"`
	ReasonCode  string    `db:"reason_code"`
	Reason      string    `db:"reason"`
	Players     int       `db:"players"`
	Alerts      int       `db:"alerts"`
	Excluded    int       `db:"excluded"`
	UpdatedAt   time.Time `db:"updated_at"`
}
