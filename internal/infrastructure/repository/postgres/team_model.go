package postgres

import (
	"database/sql"
	"time"
)

type teamTableModel struct {
	ID               string       `db:"id"`
	Name             string       `db:"name"`
	NormalizedName   string       `db:"normalized_name"`
	League           string       `db:"league"`
	NormalizedLeague string       `db:"normalized_league"`
	Country          string       `db:"country"`
	ExternalID       string       `db:"external_id"`
	ExternalSlug     string       `db:"external_slug"`
	LastSyncedAt     sql.NullTime `db:"last_synced_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

type teamInsertModel struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	NormalizedName   string `db:"normalized_name"`
	League           string `db:"league"`
	NormalizedLeague string `db:"normalized_league"`
	Country          string `db:"country"`
	ExternalID       string `db:"external_id"`
	ExternalSlug     string `db:"external_slug"`
}
