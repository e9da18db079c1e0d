package querybuilder

import (
	"strings"
	"testing"
	"time"
)

func TestToSQL(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 10, 24, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		build     func() (string, []any, error)
		wantQuery string
		wantArgs  int
	}{
		{
			name: "active roster",
			build: Select("id", "player_name").
				From("roster_entries").
				Where(Eq("team_id", "t1"), Eq("active", true)).
				OrderBy("id").
				Limit(50).
				ToSQL,
			wantQuery: "SELECT id, player_name FROM roster_entries WHERE team_id = $1 AND active = $2 ORDER BY id LIMIT 50",
			wantArgs:  2,
		},
		{
			name:      "alerts for no fixtures",
			build:     Select("id").From("alerts").Where(In[string]("fixture_id", nil), Eq("active", true)).ToSQL,
			wantQuery: "SELECT id FROM alerts WHERE FALSE AND active = $1",
			wantArgs:  1,
		},
		{
			name:      "alerts for fixtures",
			build:     Select("id").From("alerts").Where(In("fixture_id", []string{"fx-1", "fx-2"})).ToSQL,
			wantQuery: "SELECT id FROM alerts WHERE fixture_id IN ($1, $2)",
			wantArgs:  2,
		},
		{
			name: "alert upsert",
			build: InsertInto("alerts").
				Columns("player_id", "fixture_id", "run_id", "risk_tag").
				Values("p1", "fx-1", "r1", "high").
				OnConflict("player_id", "fixture_id", "run_id").
				DoUpdate("risk_tag").
				ToSQL,
			wantQuery: "INSERT INTO alerts (player_id, fixture_id, run_id, risk_tag) VALUES ($1, $2, $3, $4) ON CONFLICT (player_id, fixture_id, run_id) DO UPDATE SET risk_tag = EXCLUDED.risk_tag",
			wantArgs:  4,
		},
		{
			name: "news dedup",
			build: InsertInto("news_items").
				Columns("id", "url").
				Values("n1", "https://example.com/a").
				Values("n2", "https://example.com/b").
				OnConflict("player_id", "url").
				DoNothing().
				ToSQL,
			wantQuery: "INSERT INTO news_items (id, url) VALUES ($1, $2), ($3, $4) ON CONFLICT (player_id, url) DO NOTHING",
			wantArgs:  4,
		},
		{
			name: "team registration",
			build: InsertInto("teams").
				Columns("id", "name").
				Values("t1", "Arsenal").
				OnConflict("normalized_league", "normalized_name").
				DoUpdate("name").
				Returning("id", "name").
				ToSQL,
			wantQuery: "INSERT INTO teams (id, name) VALUES ($1, $2) ON CONFLICT (normalized_league, normalized_name) DO UPDATE SET name = EXCLUDED.name RETURNING id, name",
			wantArgs:  2,
		},
		{
			name: "acknowledge alert",
			build: Update("alerts").
				Set("acknowledged", true).
				SetNow("updated_at").
				Where(Eq("id", "a1")).
				ToSQL,
			wantQuery: "UPDATE alerts SET acknowledged = $1, updated_at = NOW() WHERE id = $2",
			wantArgs:  2,
		},
		{
			name: "supersede alerts",
			build: Update("alerts").
				Set("active", false).
				Set("updated_at", kickoff).
				Where(Eq("fixture_id", "fx-1"), Neq("run_id", "r2")).
				ToSQL,
			wantQuery: "UPDATE alerts SET active = $1, updated_at = $2 WHERE fixture_id = $3 AND run_id <> $4",
			wantArgs:  4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tc.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if query != tc.wantQuery {
				t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", tc.wantQuery, query)
			}
			if len(args) != tc.wantArgs {
				t.Fatalf("expected %d args, got %+v", tc.wantArgs, args)
			}
		})
	}
}

func TestToSQL_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func() (string, []any, error){
		"select without columns": Select().From("alerts").ToSQL,
		"select without table":   Select("id").ToSQL,
		"insert without rows":    InsertInto("alerts").Columns("id").ToSQL,
		"insert short row":       InsertInto("alerts").Columns("id", "run_id").Values("a1").ToSQL,
		"update without sets":    Update("alerts").Where(Eq("id", "a1")).ToSQL,
		"unkeyed update":         Update("alerts").Set("active", false).ToSQL,
	}
	for name, build := range cases {
		if _, _, err := build(); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

type alertRow struct {
	ID       string `db:"id"`
	RiskTag  string `db:"risk_tag,omitempty"`
	internal string
	Skipped  string `db:"-"`
	Untagged string
}

func TestInsertModels(t *testing.T) {
	t.Parallel()

	b, err := InsertModels("alerts", []alertRow{{ID: "a1", RiskTag: "high"}, {ID: "a2", RiskTag: "medium", internal: "x"}})
	if err != nil {
		t.Fatalf("insert models: %v", err)
	}
	query, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	if want := "INSERT INTO alerts (id, risk_tag) VALUES ($1, $2), ($3, $4)"; query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 4 || args[3] != "medium" {
		t.Fatalf("unexpected args: %+v", args)
	}
	if cols := Columns(&alertRow{}); strings.Join(cols, ",") != "id,risk_tag" {
		t.Fatalf("unexpected columns: %v", cols)
	}
}

func TestInsertModels_Rejects(t *testing.T) {
	t.Parallel()

	if _, err := InsertModels[alertRow]("alerts", nil); err == nil {
		t.Fatalf("expected an error for no models")
	}
	if _, err := InsertModels("alerts", []*alertRow{nil}); err == nil {
		t.Fatalf("expected an error for a nil model")
	}
	if _, err := InsertModels("alerts", []struct{ Name string }{{Name: "x"}}); err == nil {
		t.Fatalf("expected an error for an untagged model")
	}
	if cols := Columns(42); cols != nil {
		t.Fatalf("expected no columns for a non-struct, got %v", cols)
	}
}
