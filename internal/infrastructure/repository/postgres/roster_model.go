package postgres

import (
	"database/sql"
	"time"
)

type rosterEntryTableModel struct {
	ID             string       `db:"id"`
	PlayerID       string       `db:"player_id"`
	TeamID         string       `db:"team_id"`
	Name           string       `db:"name"`
	NormalizedName string       `db:"normalized_name"`
	Position       string       `db:"position"`
	ExternalID     string       `db:"external_id"`
	Active         bool         `db:"active"`
	StartDate      time.Time    `db:"start_date"`
	EndDate        sql.NullTime `db:"end_date"`
	LastSyncedAt   time.Time    `db:"last_synced_at"`
}
