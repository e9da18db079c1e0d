package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/spf13/cobra"
)

type runFlags struct {
	dryRun       bool
	fixturesOnly bool
	strict       bool
	pushAll      bool
	league       string
	fixtureName  string
	index        int
	step         int
	runID        string
	enrichOnly   string
	input        string
	lookahead    time.Duration
	parallelism  int
}

// runPlan is one orchestrator invocation per selected league.
type runPlan struct {
	options     []usecase.RunOptions
	parallelism int
}

func newRunCommand(s *session) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alert pipeline for upcoming fixtures",
		Long: `Run lists the fixtures in the lookahead window and drives each one through roster sync,
research, analyst, shark and persistence.

Select fixtures with --league, --fixture "Home vs Away" or --index. Use --step to run a single
step, reading upstream results from --run-id or --input. --enrich-only <run id> re-persists the
shark results of an earlier run without calling any provider.`,
		Example: `  pipeline run --dry-run
  pipeline run --league "Premier League" --fixture "Arsenal vs Brentford"
  pipeline run --step 3 --index 0
  pipeline run --step 4 --run-id 2026_10_19_101500
  pipeline run --enrich-only 2026_10_19_101500 --push-all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults, err := s.defaults()
			if err != nil {
				return err
			}
			plan, err := buildRunPlan(cmd, f, defaults, s.env.Now())
			if err != nil {
				return err
			}
			return s.withContainer(cmd.Context(), app.Options{FixtureParallelism: plan.parallelism}, func(c *app.Container) error {
				return s.executeRuns(cmd, c, plan)
			})
		},
	}

	f.bind(cmd)
	return cmd
}

func (f *runFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.dryRun, "dry-run", false, "run every stage but skip alert and roster writes")
	flags.BoolVar(&f.fixturesOnly, "fixtures-only", false, "list the selected fixtures and stop")
	flags.BoolVar(&f.strict, "strict", false, "exit non-zero when any fixture fails")
	flags.BoolVar(&f.pushAll, "push-all", false, "push every assessed player to the warehouse, not only alerts")
	flags.StringVar(&f.league, "league", "", "only fixtures of this league")
	flags.StringVar(&f.fixtureName, "fixture", "", `only the fixture named "Home vs Away"`)
	flags.IntVar(&f.index, "index", -1, "only the fixture at this position of the listing")
	flags.IntVar(&f.step, "step", 0, "run a single step: 1 fixtures, 2 roster, 3 research, 4 analyst, 5 shark, 6 persist")
	flags.StringVar(&f.runID, "run-id", "", "run id (default: start time as YYYY_MM_DD_HHMMSS)")
	flags.StringVar(&f.enrichOnly, "enrich-only", "", "re-persist the shark results of this run id")
	flags.StringVar(&f.input, "input", "", "JSON file of upstream stage results for --step 4 or 5")
	flags.DurationVar(&f.lookahead, "lookahead", 0, "fixture window from now (default: defaults file or FIXTURE_LOOKAHEAD)")
	flags.IntVar(&f.parallelism, "parallelism", 0, "fixtures processed concurrently")
	cmd.MarkFlagsMutuallyExclusive("fixture", "index")
	cmd.MarkFlagsMutuallyExclusive("enrich-only", "run-id")
	cmd.MarkFlagsMutuallyExclusive("enrich-only", "fixtures-only")
}

// buildRunPlan merges the defaults file with the flags the operator set explicitly.
func buildRunPlan(cmd *cobra.Command, f *runFlags, defaults config.PipelineDefaults, now time.Time) (runPlan, error) {
	changed := cmd.Flags().Changed

	base := usecase.RunOptions{
		RunID:        strings.TrimSpace(f.runID),
		DryRun:       defaults.DryRun,
		FixturesOnly: defaults.FixturesOnly,
		Strict:       defaults.Strict,
		PushAll:      defaults.PushAll,
		Step:         f.step,
		RosterMaxAge: defaults.RosterMaxAge,
		Selector:     fixture.Selector{Name: strings.TrimSpace(f.fixtureName)},
	}
	if changed("dry-run") {
		base.DryRun = f.dryRun
	}
	if changed("fixtures-only") {
		base.FixturesOnly = f.fixturesOnly
	}
	if changed("strict") {
		base.Strict = f.strict
	}
	if changed("push-all") {
		base.PushAll = f.pushAll
	}
	if changed("index") {
		if f.index < 0 {
			return runPlan{}, fmt.Errorf("%w: --index must be >= 0", usecase.ErrInvalidInput)
		}
		idx := f.index
		base.Selector.Index = &idx
	}
	if enrich := strings.TrimSpace(f.enrichOnly); enrich != "" {
		base.EnrichOnly = true
		base.RunID = enrich
	}

	lookahead := defaults.Lookahead
	if changed("lookahead") {
		lookahead = f.lookahead
	}
	if lookahead > 0 {
		base.Window = fixture.Window{From: now, To: now.Add(lookahead)}
	} else {
		base.Window = fixture.Window{From: now}
	}

	if path := strings.TrimSpace(f.input); path != "" {
		results, err := readStageInput(path)
		if err != nil {
			return runPlan{}, err
		}
		base.StepInput = results
	}

	plan := runPlan{parallelism: defaults.Parallelism}
	if changed("parallelism") {
		if f.parallelism < 1 {
			return runPlan{}, fmt.Errorf("%w: --parallelism must be >= 1", usecase.ErrInvalidInput)
		}
		plan.parallelism = f.parallelism
	}

	leagues := defaults.Leagues
	if changed("league") {
		leagues = []string{strings.TrimSpace(f.league)}
	}
	if len(leagues) == 0 || base.EnrichOnly || base.Step == usecase.StepPersist {
		leagues = []string{strings.TrimSpace(f.league)}
	}
	if len(leagues) > 1 && (base.RunID != "" || !base.Selector.IsAll()) {
		return runPlan{}, fmt.Errorf("%w: --run-id, --fixture and --index need a single league, %d configured", usecase.ErrInvalidInput, len(leagues))
	}

	for _, league := range leagues {
		opts := base
		opts.Selector.League = league
		plan.options = append(plan.options, opts)
	}
	return plan, nil
}

func readStageInput(path string) ([]stage.Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage input: %w", err)
	}
	results, err := decodeStageInput(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode stage input %s: %v", usecase.ErrInvalidInput, path, err)
	}
	for i, r := range results {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: stage input %s entry %d: %v", usecase.ErrInvalidInput, path, i, err)
		}
	}
	return results, nil
}

// decodeStageInput accepts a plain result list or the --json output of an earlier run, whose
// reports carry the results of dry and step runs.
func decodeStageInput(raw []byte) ([]stage.Result, error) {
	var summaries []usecase.RunSummary
	if err := sonic.Unmarshal(raw, &summaries); err == nil {
		var results []stage.Result
		for _, summary := range summaries {
			for _, report := range summary.Reports {
				results = append(results, report.Results...)
			}
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	var results []stage.Result
	if err := sonic.Unmarshal(raw, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *session) executeRuns(cmd *cobra.Command, c *app.Container, plan runPlan) error {
	exitCode := 0
	summaries := make([]usecase.RunSummary, 0, len(plan.options))
	for _, opts := range plan.options {
		if opts.Window.To.IsZero() && c.Config.FixtureLookahead > 0 {
			opts.Window.To = opts.Window.From.Add(c.Config.FixtureLookahead)
		}
		if opts.Selector.League != "" && !s.globals.json {
			s.print.step("league %s", opts.Selector.League)
		}
		summary, err := c.Orchestrator.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
		if !s.globals.json {
			s.print.runSummary(summary)
		}
		if code := summary.ExitCode(opts.Strict); code > exitCode {
			exitCode = code
		}
	}

	if s.globals.json {
		if err := s.print.json(summaries); err != nil {
			return err
		}
	}
	if exitCode != 0 {
		return &ExitError{Code: exitCode}
	}
	return nil
}
