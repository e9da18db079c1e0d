package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/spf13/cobra"
)

var testNow = time.Date(2026, 10, 24, 8, 0, 0, 0, time.UTC)

const scheduleJSON = `{"fixtures":[
  {"id":"fx-1","league":"Premier League","home_team":"Arsenal","away_team":"Brentford","kickoff_at":"2026-10-24T14:00:00Z"},
  {"id":"fx-2","league":"Premier League","home_team":"Chelsea","away_team":"Fulham","kickoff_at":"2026-10-24T16:30:00Z"},
  {"id":"fx-3","league":"La Liga","home_team":"Getafe","away_team":"Sevilla","kickoff_at":"2026-10-25T18:00:00Z"},
  {"id":"fx-4","league":"La Liga","home_team":"Girona","away_team":"Valencia","kickoff_at":"2026-11-20T18:00:00Z"}
]}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.json")
	if err := os.WriteFile(path, []byte(scheduleJSON), 0o600); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return config.Config{
		FixtureFile:          path,
		FixtureLookahead:     72 * time.Hour,
		PromptSport:          "soccer",
		AlertThreshold:       "medium",
		ReasoningConcurrency: 1,
		CallTimeout:          time.Second,
		CallMaxAttempts:      1,
		FixtureParallelism:   1,
		PlayerParallelism:    1,
		RosterMaxAge:         24 * time.Hour,
		NewsLimit:            5,
		NewsLookback:         72 * time.Hour,
	}
}

func testEnv(t *testing.T, out io.Writer) Env {
	cfg := testConfig(t)
	return Env{
		Out: out,
		Now: func() time.Time { return testNow },
		Open: func(ctx context.Context, opts app.Options) (*app.Container, error) {
			if !opts.InMemory {
				t.Fatalf("expected --in-memory to reach the container options")
			}
			return app.New(ctx, cfg, logging.NewNop(), opts)
		},
	}
}

func execute(t *testing.T, env Env, args ...string) (string, error) {
	t.Helper()
	out, ok := env.Out.(*bytes.Buffer)
	if !ok {
		t.Fatalf("test env must write to a buffer")
	}
	root := NewRootCommand(env)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func parsedRunCommand(t *testing.T, args ...string) (*cobra.Command, *runFlags) {
	t.Helper()
	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	f.bind(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags %v: %v", args, err)
	}
	return cmd, f
}

func TestBuildRunPlan_FlagsOverrideDefaults(t *testing.T) {
	t.Parallel()

	cmd, f := parsedRunCommand(t, "--dry-run=false", "--strict", "--lookahead", "24h", "--index", "1", "--league", "Premier League")
	defaults := config.PipelineDefaults{DryRun: true, PushAll: true, Parallelism: 2, Leagues: []string{"La Liga", "Serie A"}}

	plan, err := buildRunPlan(cmd, f, defaults, testNow)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(plan.options) != 1 {
		t.Fatalf("expected one pass for an explicit league, got %d", len(plan.options))
	}
	opts := plan.options[0]
	if opts.DryRun || !opts.Strict || !opts.PushAll {
		t.Fatalf("unexpected flag merge: %+v", opts)
	}
	if opts.Selector.League != "Premier League" || opts.Selector.Index == nil || *opts.Selector.Index != 1 {
		t.Fatalf("unexpected selector: %+v", opts.Selector)
	}
	if !opts.Window.To.Equal(testNow.Add(24 * time.Hour)) {
		t.Fatalf("expected window ending 24h from now, got %v", opts.Window)
	}
	if plan.parallelism != 2 {
		t.Fatalf("expected defaults parallelism, got %d", plan.parallelism)
	}
}

func TestBuildRunPlan_OnePassPerDefaultLeague(t *testing.T) {
	t.Parallel()

	cmd, f := parsedRunCommand(t, "--parallelism", "4")
	defaults := config.PipelineDefaults{Parallelism: 2, Leagues: []string{"Premier League", "La Liga"}}

	plan, err := buildRunPlan(cmd, f, defaults, testNow)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(plan.options) != 2 || plan.options[0].Selector.League != "Premier League" || plan.options[1].Selector.League != "La Liga" {
		t.Fatalf("unexpected passes: %+v", plan.options)
	}
	if plan.parallelism != 4 {
		t.Fatalf("expected flag parallelism, got %d", plan.parallelism)
	}
	if !plan.options[0].Window.To.IsZero() {
		t.Fatalf("expected open window to inherit the configured lookahead, got %v", plan.options[0].Window)
	}
}

func TestBuildRunPlan_EnrichOnlyUsesSinglePass(t *testing.T) {
	t.Parallel()

	cmd, f := parsedRunCommand(t, "--enrich-only", "2026_10_19_101500")
	defaults := config.PipelineDefaults{Parallelism: 2, Leagues: []string{"Premier League", "La Liga"}}

	plan, err := buildRunPlan(cmd, f, defaults, testNow)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if len(plan.options) != 1 {
		t.Fatalf("expected a single enrich pass, got %d", len(plan.options))
	}
	if !plan.options[0].EnrichOnly || plan.options[0].RunID != "2026_10_19_101500" {
		t.Fatalf("unexpected enrich options: %+v", plan.options[0])
	}
}

func TestBuildRunPlan_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		args     []string
		defaults config.PipelineDefaults
	}{
		{name: "negative index", args: []string{"--index", "-2"}, defaults: config.PipelineDefaults{Parallelism: 1}},
		{name: "zero parallelism", args: []string{"--parallelism", "0"}, defaults: config.PipelineDefaults{Parallelism: 1}},
		{name: "selector across leagues", args: []string{"--fixture", "Arsenal vs Brentford"}, defaults: config.PipelineDefaults{Parallelism: 1, Leagues: []string{"Premier League", "La Liga"}}},
		{name: "missing input file", args: []string{"--step", "4", "--input", filepath.Join(t.TempDir(), "missing.json")}, defaults: config.PipelineDefaults{Parallelism: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, f := parsedRunCommand(t, tc.args...)
			if _, err := buildRunPlan(cmd, f, tc.defaults, testNow); err == nil {
				t.Fatalf("expected %v to be rejected", tc.args)
			}
		})
	}
}

func TestReadStageInput_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	_, err := readStageInput(path)
	if !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReadStageInput_AcceptsRunOutput(t *testing.T) {
	t.Parallel()

	summaries := []usecase.RunSummary{{
		RunID: "2026_10_24_080000",
		Reports: []usecase.FixtureReport{{
			FixtureID: "fx-1",
			Results: []stage.Result{{
				ID:        "res-1",
				RunID:     "2026_10_24_080000",
				FixtureID: "fx-1",
				PlayerID:  "pl-1",
				Stage:     stage.Research,
				Status:    stage.StatusCompleted,
				Payload:   []byte(`{"player":{"player_id":"pl-1","name":"Bukayo Saka"},"summary":"trained"}`),
			}},
		}},
	}}
	raw, err := sonic.Marshal(summaries)
	if err != nil {
		t.Fatalf("encode summaries: %v", err)
	}
	if !strings.Contains(string(raw), `"summary":"trained"`) {
		t.Fatalf("expected the payload inlined as JSON, got %s", raw)
	}
	path := filepath.Join(t.TempDir(), "step3.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	results, err := readStageInput(path)
	if err != nil {
		t.Fatalf("read stage input: %v", err)
	}
	if len(results) != 1 || results[0].ID != "res-1" || string(results[0].Payload) != string(summaries[0].Reports[0].Results[0].Payload) {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestPrinter_RunSummaryShowsDryRunOutput(t *testing.T) {
	t.Parallel()

	fx := fixture.Fixture{ID: "fx-1", League: "Premier League", HomeTeam: "Arsenal", AwayTeam: "Brentford", KickoffAt: testNow}
	outcome := pipelinerun.NewOutcome(fx, testNow)
	outcome.State = pipelinerun.StateCompleted
	outcome.Alerts = 1
	summary := usecase.RunSummary{
		RunID:    "2026_10_24_080000",
		Mode:     pipelinerun.ModeDryRun,
		Kind:     pipelinerun.KindSingle,
		Outcomes: []pipelinerun.FixtureOutcome{outcome},
		Reports: []usecase.FixtureReport{{
			FixtureID: "fx-1",
			Results: []stage.Result{
				{FixtureID: "fx-1", PlayerID: "pl-1", Stage: stage.Research, Status: stage.StatusCompleted, Attempts: 1, Payload: []byte(`{"player":{"name":"Bukayo Saka"},"summary":"hamstring"}`)},
				{FixtureID: "fx-1", PlayerID: "pl-2", Stage: stage.Research, Status: stage.StatusFailed, Attempts: 3, Error: "rate limited"},
				{FixtureID: "fx-1", Stage: stage.Shark, Status: stage.StatusCompleted, Attempts: 1},
			},
			Alerts: []stage.AlertCandidate{{
				Player:      stage.PlayerRef{Name: "Bukayo Saka", TeamName: "Arsenal"},
				RiskTag:     alert.RiskHigh,
				Explanation: "hamstring strain",
				Likelihood:  0.2,
			}},
			Excluded: []stage.Exclusion{{Name: "Ben White", Reason: "analyst failed"}},
		}},
		Completed: 1,
		Alerts:    1,
	}

	out := &bytes.Buffer{}
	newPrinter(out).runSummary(summary)
	got := out.String()
	for _, want := range []string{"Bukayo Saka", `"summary":"hamstring"`, "rate limited", "HIGH", "hamstring strain", "likelihood=20%", "excluded Ben White: analyst failed"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}

	summary.Mode = pipelinerun.ModeNormal
	out.Reset()
	newPrinter(out).runSummary(summary)
	if got := out.String(); strings.Contains(got, `"summary":"hamstring"`) || !strings.Contains(got, "hamstring strain") {
		t.Fatalf("expected normal runs to list candidates without stage payloads:\n%s", got)
	}
}

func TestFixturesCommand_PrintsIndexedTable(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	got, err := execute(t, testEnv(t, out), "fixtures", "--in-memory")
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	for _, want := range []string{"INDEX", "Arsenal vs Brentford", "Chelsea vs Fulham", "Getafe vs Sevilla"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Girona") {
		t.Fatalf("fixture outside the lookahead window was listed:\n%s", got)
	}
}

func TestFixturesCommand_FiltersLeagueAsJSON(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	got, err := execute(t, testEnv(t, out), "fixtures", "--in-memory", "--json", "--league", "La Liga")
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	if !strings.Contains(got, `"fx-3"`) || strings.Contains(got, `"fx-1"`) {
		t.Fatalf("expected only the La Liga fixture:\n%s", got)
	}
}

func TestRunCommand_FixturesOnly(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	got, err := execute(t, testEnv(t, out), "run", "--in-memory", "--fixtures-only", "--league", "Premier League", "--run-id", "2026_10_24_080000")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(got, "run 2026_10_24_080000") || !strings.Contains(got, "Chelsea vs Fulham") {
		t.Fatalf("unexpected run output:\n%s", got)
	}
}

func TestUsageCommand_NoRuns(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	got, err := execute(t, testEnv(t, out), "usage", "--in-memory")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if !strings.Contains(got, "no runs recorded usage yet") {
		t.Fatalf("unexpected usage output:\n%s", got)
	}
}

func TestAlertsCommand_RequiresOneSelector(t *testing.T) {
	t.Parallel()

	env := Env{
		Out: &bytes.Buffer{},
		Open: func(context.Context, app.Options) (*app.Container, error) {
			return nil, errors.New("container must not be opened")
		},
	}
	for _, args := range [][]string{
		{"alerts"},
		{"alerts", "--run-id", "r1", "--fixture-id", "fx-1"},
	} {
		_, err := execute(t, env, args...)
		if !crerr.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("%v: expected invalid input, got %v", args, err)
		}
	}
}

func TestAlertsCommand_AckUnknownAlert(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, err := execute(t, testEnv(t, out), "alerts", "ack", "missing-alert", "--in-memory")
	if !crerr.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	var err error = &ExitError{Code: 1}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 || err.Error() != "exit status 1" {
		t.Fatalf("unexpected exit error: %v", err)
	}
}
