package postgres

import "time"

type alertTableModel struct {
	ID           string    `db:"id"`
	PlayerID     string    `db:"player_id"`
	PlayerName   string    `db:"player_name"`
	TeamID       string    `db:"team_id"`
	TeamName     string    `db:"team_name"`
	FixtureID    string    `db:"fixture_id"`
	RunID        string    `db:"run_id"`
	RiskTag      string    `db:"risk_tag"`
	Explanation  string    `db:"explanation"`
	Likelihood   float64   `db:"likelihood"`
	Active       bool      `db:"active"`
	Acknowledged bool      `db:"acknowledged"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type alertUpsertModel struct {
	ID          string    `db:"id"`
	PlayerID    string    `db:"player_id"`
	PlayerName  string    `db:"player_name"`
	TeamID      string    `db:"team_id"`
	TeamName    string    `db:"team_name"`
	FixtureID   string    `db:"fixture_id"`
	RunID       string    `db:"run_id"`
	RiskTag     string    `db:"risk_tag"`
	Explanation string    `db:"explanation"`
	Likelihood  float64   `db:"likelihood"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
