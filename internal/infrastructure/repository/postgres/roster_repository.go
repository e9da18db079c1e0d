package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	qb "github.com/riskibarqy/player-risk-alerts/internal/platform/querybuilder"
)

var rosterEntryColumns = qb.Columns(rosterEntryTableModel{})

const updateRosterEntryQuery = `UPDATE roster_entries SET
    name = :name,
    normalized_name = :normalized_name,
    position = :position,
    external_id = :external_id,
    active = :active,
    end_date = :end_date,
    last_synced_at = :last_synced_at
WHERE id = :id AND team_id = :team_id`

type RosterRepository struct {
	db *sqlx.DB
}

func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) ListByTeam(ctx context.Context, teamID string, includeInactive bool) ([]roster.Entry, error) {
	conditions := []qb.Condition{qb.Eq("team_id", teamID)}
	if !includeInactive {
		conditions = append(conditions, qb.Eq("active", true))
	}
	query, args, err := qb.Select(rosterEntryColumns...).
		From("roster_entries").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list roster query: %w", err)
	}

	var rows []rosterEntryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list roster by team: %w", err)
	}

	out := make([]roster.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, rosterEntryFromRow(row))
	}
	return out, nil
}

// ApplySync writes the change set and stamps teams.last_synced_at in one transaction.
func (r *RosterRepository) ApplySync(ctx context.Context, teamID string, change roster.Change, syncedAt time.Time) error {
	updates := make([]roster.Entry, 0, len(change.Reactivate)+len(change.Deactivate)+len(change.Update))
	updates = append(updates, change.Reactivate...)
	updates = append(updates, change.Deactivate...)
	updates = append(updates, change.Update...)
	for _, e := range append(append([]roster.Entry(nil), change.Insert...), updates...) {
		if e.TeamID != teamID {
			return fmt.Errorf("roster entry %s belongs to team %s, not %s", e.ID, e.TeamID, teamID)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("invalid roster entry: %w", err)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx apply roster sync: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if len(change.Insert) > 0 {
		rows := make([]rosterEntryTableModel, 0, len(change.Insert))
		for _, e := range change.Insert {
			rows = append(rows, rosterEntryToRow(e))
		}
		insert, err := qb.InsertModels("roster_entries", rows)
		if err != nil {
			return fmt.Errorf("build insert roster entries model: %w", err)
		}
		query, args, err := insert.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert roster entries query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert roster entries: team %s already has an active entry for a synced player: %w", teamID, err)
			}
			return fmt.Errorf("insert roster entries: %w", err)
		}
	}

	for _, e := range updates {
		query, args, err := sqlx.Named(updateRosterEntryQuery, rosterEntryToRow(e))
		if err != nil {
			return fmt.Errorf("build update roster entry query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("update roster entry %s: %w", e.ID, err)
		}
	}

	if err := markTeamSynced(ctx, tx, teamID, syncedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply roster sync tx: %w", err)
	}
	return nil
}

func rosterEntryToRow(e roster.Entry) rosterEntryTableModel {
	return rosterEntryTableModel{
		ID:             e.ID,
		PlayerID:       e.PlayerID,
		TeamID:         e.TeamID,
		Name:           e.Name,
		NormalizedName: e.NormalizedName,
		Position:       e.Position,
		ExternalID:     e.ExternalID,
		Active:         e.Active,
		StartDate:      e.StartDate.UTC(),
		EndDate:        nullableTime(e.EndDate),
		LastSyncedAt:   e.LastSyncedAt.UTC(),
	}
}

func rosterEntryFromRow(row rosterEntryTableModel) roster.Entry {
	return roster.Entry{
		ID:             row.ID,
		PlayerID:       row.PlayerID,
		TeamID:         row.TeamID,
		Name:           row.Name,
		NormalizedName: row.NormalizedName,
		Position:       row.Position,
		ExternalID:     row.ExternalID,
		Active:         row.Active,
		StartDate:      row.StartDate,
		EndDate:        nullTimeToPtr(row.EndDate),
		LastSyncedAt:   row.LastSyncedAt,
	}
}
