package main

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/riskibarqy/player-risk-alerts/db/migrations"
)

func TestParseSteps(t *testing.T) {
	t.Parallel()

	if steps, err := parseSteps(nil); err != nil || steps != 1 {
		t.Fatalf("expected default of one step, got %d %v", steps, err)
	}
	if steps, err := parseSteps([]string{" 3 "}); err != nil || steps != 3 {
		t.Fatalf("expected 3 steps, got %d %v", steps, err)
	}
	for _, bad := range []string{"0", "-1", "two"} {
		if _, err := parseSteps([]string{bad}); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestParseVersionAndTarget(t *testing.T) {
	t.Parallel()

	if v, err := parseVersion("-1"); err != nil || v != -1 {
		t.Fatalf("expected -1 to clear the version, got %d %v", v, err)
	}
	if _, err := parseVersion("-2"); err == nil {
		t.Fatalf("expected -2 to be rejected")
	}
	if v, err := parseTarget("1771900000"); err != nil || v != 1771900000 {
		t.Fatalf("unexpected target %d %v", v, err)
	}
	if _, err := parseTarget("-5"); err == nil {
		t.Fatalf("expected negative target to be rejected")
	}
}

func TestEmbeddedMigrations_IncludesPipelineTables(t *testing.T) {
	t.Parallel()

	names, err := embeddedMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(names) == 0 || names[0] != "1771900000_create_pipeline_tables.up.sql" {
		t.Fatalf("unexpected embedded migrations: %v", names)
	}
}

func TestMigrationStatus(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"1771900000_create_pipeline_tables.up.sql":   {},
		"1771900000_create_pipeline_tables.down.sql": {},
		"1772000000_add_alert_ack.up.sql":            {},
	}
	names, err := embeddedMigrations(fsys)
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}

	rows := migrationStatus(names, 1771900000, false)
	if len(rows) != 2 || !strings.HasPrefix(rows[0], "applied") || !strings.HasPrefix(rows[1], "pending") {
		t.Fatalf("unexpected status rows: %v", rows)
	}
	rows = migrationStatus(names, 1772000000, true)
	if !strings.HasPrefix(rows[1], "dirty") || !strings.HasSuffix(rows[1], "1772000000_add_alert_ack") {
		t.Fatalf("expected latest migration dirty, got %v", rows)
	}
	if formatVersion(0) != "none" {
		t.Fatalf("expected zero version rendered as none")
	}
}

func TestRootCommand_HelpDoesNotNeedDatabase(t *testing.T) {
	t.Setenv("DB_URL", "")

	var out strings.Builder
	root, closeMigrator := newRootCommand(&out)
	defer closeMigrator()
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "status") {
		t.Fatalf("expected status in help output:\n%s", out.String())
	}
}
