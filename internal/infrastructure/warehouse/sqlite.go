// Package warehouse keeps a denormalized, append-only copy of assessed players in SQLite for
// offline analysis.
package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	_ "modernc.org/sqlite"
)

const insertFactQuery = `INSERT OR IGNORE INTO alert_facts
    (run_id, fixture_id, fixture_name, league, kickoff_at, player_id, player_name, team_name,
     position, risk_tag, explanation, likelihood, pushed_at)
VALUES
    (:run_id, :fixture_id, :fixture_name, :league, :kickoff_at, :player_id, :player_name, :team_name,
     :position, :risk_tag, :explanation, :likelihood, :pushed_at)`

type factRow struct {
	RunID       string  `db:"run_id"`
	FixtureID   string  `db:"fixture_id"`
	FixtureName string  `db:"fixture_name"`
	League      string  `db:"league"`
	KickoffAt   int64   `db:"kickoff_at"`
	PlayerID    string  `db:"player_id"`
	PlayerName  string  `db:"player_name"`
	TeamName    string  `db:"team_name"`
	Position    string  `db:"position"`
	RiskTag     string  `db:"risk_tag"`
	Explanation string  `db:"explanation"`
	Likelihood  float64 `db:"likelihood"`
	PushedAt    int64   `db:"pushed_at"`
}

// SQLite is the warehouse sink. Rows are unique on (run_id, fixture_id, player_id); a repeated
// push keeps the first row.
type SQLite struct {
	db *sqlx.DB
}

// Open creates the database file (and its directory) when missing and ensures the schema.
func Open(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "player-risk-alerts", "warehouse.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create warehouse directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	// single writer; WAL keeps readers unblocked
	db.SetMaxOpenConns(1)

	w := &SQLite{db: db}
	if err := w.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLite) Close() error {
	return w.db.Close()
}

func (w *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS alert_facts (
			run_id       TEXT NOT NULL,
			fixture_id   TEXT NOT NULL,
			fixture_name TEXT NOT NULL,
			league       TEXT NOT NULL,
			kickoff_at   INTEGER NOT NULL,
			player_id    TEXT NOT NULL,
			player_name  TEXT NOT NULL,
			team_name    TEXT NOT NULL DEFAULT '',
			position     TEXT NOT NULL DEFAULT '',
			risk_tag     TEXT NOT NULL,
			explanation  TEXT NOT NULL DEFAULT '',
			likelihood   REAL NOT NULL DEFAULT 0,
			pushed_at    INTEGER NOT NULL,
			UNIQUE (run_id, fixture_id, player_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_facts_fixture ON alert_facts(fixture_id, risk_tag)`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate warehouse: %w", err)
		}
	}
	return nil
}

// Push appends rows in one transaction and reports how many were new.
func (w *SQLite) Push(ctx context.Context, rows []alert.WarehouseRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx warehouse push: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertFactQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare warehouse insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	inserted := 0
	for _, row := range rows {
		pushedAt := row.PushedAt
		if pushedAt.IsZero() {
			pushedAt = now
		}
		res, err := stmt.ExecContext(ctx, factRow{
			RunID:       row.RunID,
			FixtureID:   row.FixtureID,
			FixtureName: row.FixtureName,
			League:      row.League,
			KickoffAt:   row.KickoffAt.UnixNano(),
			PlayerID:    row.PlayerID,
			PlayerName:  row.PlayerName,
			TeamName:    row.TeamName,
			Position:    row.Position,
			RiskTag:     string(row.RiskTag),
			Explanation: row.Explanation,
			Likelihood:  row.Likelihood,
			PushedAt:    pushedAt.UnixNano(),
		})
		if err != nil {
			return 0, fmt.Errorf("insert warehouse row for player %s: %w", row.PlayerID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit warehouse push tx: %w", err)
	}
	return inserted, nil
}

// ListByFixture returns a fixture's rows across runs, newest push first.
func (w *SQLite) ListByFixture(ctx context.Context, fixtureID string) ([]alert.WarehouseRow, error) {
	var rows []factRow
	err := w.db.SelectContext(ctx, &rows, `SELECT run_id, fixture_id, fixture_name, league, kickoff_at,
    player_id, player_name, team_name, position, risk_tag, explanation, likelihood, pushed_at
FROM alert_facts WHERE fixture_id = ? ORDER BY pushed_at DESC, player_name`, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("list warehouse rows: %w", err)
	}

	out := make([]alert.WarehouseRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, alert.WarehouseRow{
			RunID:       r.RunID,
			FixtureID:   r.FixtureID,
			FixtureName: r.FixtureName,
			League:      r.League,
			KickoffAt:   time.Unix(0, r.KickoffAt).UTC(),
			PlayerID:    r.PlayerID,
			PlayerName:  r.PlayerName,
			TeamName:    r.TeamName,
			Position:    r.Position,
			RiskTag:     alert.RiskTag(r.RiskTag),
			Explanation: r.Explanation,
			Likelihood:  r.Likelihood,
			PushedAt:    time.Unix(0, r.PushedAt).UTC(),
		})
	}
	return out, nil
}
