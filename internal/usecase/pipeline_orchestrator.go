package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/id"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// Step numbers for step-isolated runs.
const (
	StepFixtures = 1
	StepRoster   = 2
	StepResearch = 3
	StepAnalyst  = 4
	StepShark    = 5
	StepPersist  = 6
)

const (
	defaultFixtureParallelism = 2
	defaultPlayerParallelism  = 8
	usageFlushTimeout         = 10 * time.Second
)

type RunOptions struct {
	// RunID defaults to the start time formatted with id.RunIDLayout.
	RunID        string
	DryRun       bool
	Selector     fixture.Selector
	Window       fixture.Window
	FixturesOnly bool
	// Step runs exactly one step (1..6); zero runs the whole chain.
	Step       int
	EnrichOnly bool
	Strict     bool
	PushAll    bool
	// StepInput supplies upstream stage results for steps 4 and 5 instead of reading them
	// from the stage repository.
	StepInput    []stage.Result
	RosterMaxAge time.Duration
}

func (o RunOptions) validate() error {
	if o.Step < 0 || o.Step > StepPersist {
		return fmt.Errorf("%w: step must be between 1 and 6, got %d", ErrInvalidInput, o.Step)
	}
	if o.FixturesOnly && o.Step > StepFixtures {
		return fmt.Errorf("%w: fixtures-only cannot be combined with step %d", ErrInvalidInput, o.Step)
	}
	if o.EnrichOnly && o.Step != 0 && o.Step != StepPersist {
		return fmt.Errorf("%w: enrich-only cannot be combined with step %d", ErrInvalidInput, o.Step)
	}
	if (o.EnrichOnly || o.Step == StepPersist) && strings.TrimSpace(o.RunID) == "" {
		return fmt.Errorf("%w: enrich-only requires a run id", ErrInvalidInput)
	}
	if (o.Step == StepAnalyst || o.Step == StepShark) && strings.TrimSpace(o.RunID) == "" && len(o.StepInput) == 0 {
		return fmt.Errorf("%w: step %d needs a run id or an input file", ErrInvalidInput, o.Step)
	}
	return nil
}

func (o RunOptions) kind() pipelinerun.Kind {
	switch {
	case o.EnrichOnly || o.Step == StepPersist:
		return pipelinerun.KindEnrichOnly
	case o.Step != 0:
		return pipelinerun.KindStep
	case !o.Selector.IsAll():
		return pipelinerun.KindSingle
	default:
		return pipelinerun.KindBatch
	}
}

type RunSummary struct {
	RunID      string                       `json:"run_id"`
	Mode       pipelinerun.Mode             `json:"mode"`
	Kind       pipelinerun.Kind             `json:"kind"`
	Step       int                          `json:"step,omitempty"`
	Fixtures   []fixture.Fixture            `json:"fixtures"`
	Outcomes   []pipelinerun.FixtureOutcome `json:"outcomes"`
	Reports    []FixtureReport              `json:"reports,omitempty"`
	Completed  int                          `json:"completed"`
	Failed     int                          `json:"failed"`
	Alerts     int                          `json:"alerts"`
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
}

// FixtureReport carries what a fixture produced in this run. It is the only output of a dry
// run, and of a step run it is the input of the next step.
type FixtureReport struct {
	FixtureID string                 `json:"fixture_id"`
	Results   []stage.Result         `json:"results,omitempty"`
	Alerts    []stage.AlertCandidate `json:"alerts,omitempty"`
	Excluded  []stage.Exclusion      `json:"excluded,omitempty"`
}

// ExitCode is non-zero in strict mode when any fixture failed. Best-effort runs report failures
// in the summary only.
func (s RunSummary) ExitCode(strict bool) int {
	if strict && s.Failed > 0 {
		return 1
	}
	return 0
}

type OrchestratorConfig struct {
	FixtureParallelism int
	PlayerParallelism  int
	RosterMaxAge       time.Duration
}

// RosterService is the roster side of the pipeline.
type RosterService interface {
	Ensure(ctx context.Context, name, league string, opts EnsureOptions) (team.Team, error)
	Sync(ctx context.Context, t team.Team, opts SyncOptions) (RosterSyncResult, error)
	StoredRoster(ctx context.Context, name, league string) (team.Team, []roster.Entry, error)
}

type StageRunner interface {
	Run(ctx context.Context, st stage.Stage, in StageInput) (stage.Result, error)
}

type AlertCommitter interface {
	Commit(ctx context.Context, input CommitInput) (CommitResult, error)
}

// PipelineOrchestrator drives fixtures through roster sync, the agent chain and the alert sink.
type PipelineOrchestrator struct {
	source  fixture.Source
	rosters RosterService
	chain   StageRunner
	sink    AlertCommitter
	results stage.Repository
	runs    pipelinerun.Repository
	tracker *UsageTracker
	cfg     OrchestratorConfig
	logger  *logging.Logger
	now     func() time.Time
}

func NewPipelineOrchestrator(
	source fixture.Source,
	rosters RosterService,
	chain StageRunner,
	sink AlertCommitter,
	results stage.Repository,
	runs pipelinerun.Repository,
	tracker *UsageTracker,
	cfg OrchestratorConfig,
	logger *logging.Logger,
) *PipelineOrchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FixtureParallelism < 1 {
		cfg.FixtureParallelism = defaultFixtureParallelism
	}
	if cfg.PlayerParallelism < 1 {
		cfg.PlayerParallelism = defaultPlayerParallelism
	}
	if cfg.RosterMaxAge <= 0 {
		cfg.RosterMaxAge = DefaultRosterMaxAge
	}
	return &PipelineOrchestrator{
		source:  source,
		rosters: rosters,
		chain:   chain,
		sink:    sink,
		results: results,
		runs:    runs,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// fixtureJob carries what one fixture needs for a given run.
type fixtureJob struct {
	fixture  fixture.Fixture
	upstream []stage.Result
	shark    *stage.SharkOutput
}

func (o *PipelineOrchestrator) Run(ctx context.Context, opts RunOptions) (RunSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineOrchestrator.Run")
	defer span.End()

	if err := opts.validate(); err != nil {
		return RunSummary{}, err
	}
	if opts.Step == StepPersist {
		opts.EnrichOnly = true
	}
	if opts.RosterMaxAge <= 0 {
		opts.RosterMaxAge = o.cfg.RosterMaxAge
	}

	startedAt := o.now()
	if strings.TrimSpace(opts.RunID) == "" {
		opts.RunID = id.NewRunID(startedAt)
	}
	ctx = WithRunID(ctx, opts.RunID)
	tagRun(span, opts.RunID)
	defer o.flushUsage(ctx)

	summary := RunSummary{
		RunID:     opts.RunID,
		Mode:      pipelinerun.ModeNormal,
		Kind:      opts.kind(),
		Step:      opts.Step,
		StartedAt: startedAt.UTC(),
	}
	if opts.DryRun {
		summary.Mode = pipelinerun.ModeDryRun
	}

	jobs, err := o.plan(ctx, opts, &summary)
	if err != nil {
		summary.FinishedAt = o.now().UTC()
		return summary, err
	}
	if opts.FixturesOnly || opts.Step == StepFixtures {
		summary.FinishedAt = o.now().UTC()
		return summary, nil
	}

	o.startRun(ctx, opts, summary)
	summary.Outcomes, summary.Reports = o.processAll(ctx, opts, jobs)
	summary.FinishedAt = o.now().UTC()
	o.finishRun(ctx, opts, summary.FinishedAt)

	for _, outcome := range summary.Outcomes {
		switch outcome.State {
		case pipelinerun.StateCompleted:
			summary.Completed++
		case pipelinerun.StateFailed:
			summary.Failed++
		}
		summary.Alerts += outcome.Alerts
	}

	o.logger.InfoContext(ctx, "pipeline run finished",
		"mode", summary.Mode,
		"kind", summary.Kind,
		"step", summary.Step,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"alerts", summary.Alerts,
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// plan selects the fixtures of the run and loads whatever persisted input the mode needs.
func (o *PipelineOrchestrator) plan(ctx context.Context, opts RunOptions, summary *RunSummary) ([]fixtureJob, error) {
	if opts.EnrichOnly {
		return o.planEnrichOnly(ctx, opts, summary)
	}

	listed, err := o.source.ListFixtures(ctx, fixture.Query{League: opts.Selector.League, Window: opts.Window})
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "list fixtures"), ErrSourceUnavailable)
	}
	fixture.SortByKickoff(listed)
	selected, err := fixture.Select(listed, opts.Selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	summary.Fixtures = selected

	var upstream map[string][]stage.Result
	if opts.Step == StepAnalyst || opts.Step == StepShark {
		upstream, err = o.loadUpstream(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	jobs := make([]fixtureJob, 0, len(selected))
	for _, fx := range selected {
		job := fixtureJob{fixture: fx}
		if upstream != nil {
			job.upstream = upstream[fx.ID]
			if len(job.upstream) == 0 {
				o.logger.InfoContext(ctx, "no upstream results for fixture, skipping", "fixture", fx.Name())
				continue
			}
		}
		jobs = append(jobs, job)
	}
	if upstream != nil && len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no stage results for run %s match the selection", ErrDataNotFound, opts.RunID)
	}
	return jobs, nil
}

func (o *PipelineOrchestrator) planEnrichOnly(ctx context.Context, opts RunOptions, summary *RunSummary) ([]fixtureJob, error) {
	results, err := o.results.ListByRun(ctx, opts.RunID, stage.Filter{Stage: stage.Shark})
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "load shark results run_id=%s", opts.RunID), ErrPersistence)
	}

	byID := make(map[string]stage.SharkOutput)
	fixtures := make([]fixture.Fixture, 0)
	for _, r := range stage.Latest(results) {
		if !r.Completed() {
			continue
		}
		var out stage.SharkOutput
		if err := sonic.Unmarshal(r.Payload, &out); err != nil {
			o.logger.WarnContext(ctx, "skip undecodable shark payload", "result_id", r.ID, "error", err)
			continue
		}
		if out.Fixture.ID == "" {
			out.Fixture.ID = r.FixtureID
		}
		byID[out.Fixture.ID] = out
		fixtures = append(fixtures, out.Fixture)
	}

	fixture.SortByKickoff(fixtures)
	selected, err := fixture.Select(fixtures, opts.Selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: run %s has no completed shark results", ErrDataNotFound, opts.RunID)
	}
	summary.Fixtures = selected

	jobs := make([]fixtureJob, 0, len(selected))
	for _, fx := range selected {
		out := byID[fx.ID]
		jobs = append(jobs, fixtureJob{fixture: fx, shark: &out})
	}
	return jobs, nil
}

func (o *PipelineOrchestrator) loadUpstream(ctx context.Context, opts RunOptions) (map[string][]stage.Result, error) {
	results := opts.StepInput
	if len(results) == 0 {
		loaded, err := o.results.ListByRun(ctx, opts.RunID, stage.Filter{})
		if err != nil {
			return nil, crerr.Mark(crerr.Wrapf(err, "load stage results run_id=%s", opts.RunID), ErrPersistence)
		}
		results = loaded
	}

	out := make(map[string][]stage.Result)
	for _, r := range stage.Latest(results) {
		out[r.FixtureID] = append(out[r.FixtureID], r)
	}
	return out, nil
}

func (o *PipelineOrchestrator) processAll(ctx context.Context, opts RunOptions, jobs []fixtureJob) ([]pipelinerun.FixtureOutcome, []FixtureReport) {
	outcomes := make([]pipelinerun.FixtureOutcome, len(jobs))
	reports := make([]FixtureReport, len(jobs))
	for i, job := range jobs {
		reports[i].FixtureID = job.fixture.ID
	}
	if len(jobs) == 0 {
		return outcomes, reports
	}

	workers := min(o.cfg.FixtureParallelism, len(jobs))
	p, err := ants.NewPool(workers)
	if err != nil {
		for i, job := range jobs {
			outcomes[i] = pipelinerun.NewOutcome(job.fixture, o.now())
			outcomes[i].Fail(pipelinerun.StatePending, ReasonUnavailable, "create worker pool: "+err.Error(), o.now())
		}
		return outcomes, reports
	}
	defer p.Release()

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			outcomes[i] = o.processFixture(ctx, opts, job, &reports[i])
			o.saveOutcome(ctx, opts, outcomes[i])
		}); err != nil {
			wg.Done()
			outcomes[i] = pipelinerun.NewOutcome(job.fixture, o.now())
			outcomes[i].Fail(pipelinerun.StatePending, ReasonUnavailable, "submit fixture: "+err.Error(), o.now())
		}
	}
	wg.Wait()
	return outcomes, reports
}

func (o *PipelineOrchestrator) processFixture(ctx context.Context, opts RunOptions, job fixtureJob, report *FixtureReport) (outcome pipelinerun.FixtureOutcome) {
	fx := job.fixture
	outcome = pipelinerun.NewOutcome(fx, o.now())
	logger := o.logger.With("fixture_id", fx.ID, "fixture", fx.Name())

	defer func() {
		if r := recover(); r != nil {
			outcome.Fail(outcome.State, ReasonUnknown, fmt.Sprintf("panic: %v", r), o.now())
			logger.ErrorContext(ctx, "fixture processing panicked", "panic", r)
		}
	}()

	fail := func(err error) pipelinerun.FixtureOutcome {
		state := outcome.State
		code := Classify(err)
		if code == ReasonCancelled || ctx.Err() != nil {
			outcome.Fail(pipelinerun.StageCancelled, ReasonCancelled, "cancelled during "+string(state), o.now())
		} else {
			outcome.Fail(state, code, err.Error(), o.now())
		}
		logger.WarnContext(ctx, "fixture failed", "stage", state, "reason", outcome.ReasonCode, "error", err)
		return outcome
	}
	enter := func(state pipelinerun.FixtureState) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return outcome.Transition(state, o.now())
	}

	if opts.EnrichOnly {
		if err := enter(pipelinerun.StatePersisting); err != nil {
			return fail(err)
		}
		return o.persist(ctx, opts, &outcome, *job.shark, report, fail)
	}

	var (
		players  []stage.PlayerRef
		research []stage.Result
		analyst  []stage.Result
		err      error
	)

	switch opts.Step {
	case 0, StepRoster:
		if err := enter(pipelinerun.StateRosterSyncing); err != nil {
			return fail(err)
		}
		if players, err = o.syncRosters(ctx, opts, fx); err != nil {
			return fail(err)
		}
		outcome.Players = len(players)
		if opts.Step == StepRoster {
			return o.complete(&outcome)
		}
	case StepResearch:
		if err := enter(pipelinerun.StateRosterSyncing); err != nil {
			return fail(err)
		}
		if players, err = o.storedPlayers(ctx, fx); err != nil {
			return fail(err)
		}
		outcome.Players = len(players)
	case StepAnalyst:
		research = filterStage(job.upstream, stage.Research)
		players = playersFromResults(research)
		outcome.Players = len(players)
	case StepShark:
		analyst = filterStage(job.upstream, stage.Analyst)
		players = playersFromResults(append(filterStage(job.upstream, stage.Research), analyst...))
		outcome.Players = len(players)
	}

	if opts.Step == 0 || opts.Step == StepResearch {
		if err := enter(pipelinerun.StateResearching); err != nil {
			return fail(err)
		}
		research = o.fanOut(ctx, opts, fx, players, stage.Research, nil)
		report.Results = append(report.Results, research...)
		if opts.Step == StepResearch {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
			return o.complete(&outcome)
		}
	}

	if opts.Step == 0 || opts.Step == StepAnalyst {
		if err := enter(pipelinerun.StateAnalyzing); err != nil {
			return fail(err)
		}
		analyst = o.fanOut(ctx, opts, fx, players, stage.Analyst, research)
		report.Results = append(report.Results, analyst...)
		if opts.Step == StepAnalyst {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
			return o.complete(&outcome)
		}
	}

	// Shark reads every per-player analyst result of the fixture, so it only starts once the
	// fan-out above has returned.
	if err := enter(pipelinerun.StateScoring); err != nil {
		return fail(err)
	}
	sharkResult, err := o.chain.Run(ctx, stage.Shark, StageInput{
		RunID:     opts.RunID,
		Fixture:   fx,
		Players:   players,
		Upstreams: analyst,
		DryRun:    opts.DryRun,
	})
	if sharkResult.ID != "" {
		report.Results = append(report.Results, sharkResult)
	}
	if err != nil {
		return fail(err)
	}
	var sharkOut stage.SharkOutput
	if err := sonic.Unmarshal(sharkResult.Payload, &sharkOut); err != nil {
		return fail(fmt.Errorf("%w: decode shark payload: %v", ErrMalformedOutput, err))
	}
	outcome.Excluded = len(sharkOut.Excluded)
	report.Alerts, report.Excluded = sharkOut.Alerts, sharkOut.Excluded
	if opts.Step == StepShark {
		outcome.Alerts = len(sharkOut.Alerts)
		return o.complete(&outcome)
	}

	if err := enter(pipelinerun.StatePersisting); err != nil {
		return fail(err)
	}
	return o.persist(ctx, opts, &outcome, sharkOut, report, fail)
}

func (o *PipelineOrchestrator) persist(
	ctx context.Context,
	opts RunOptions,
	outcome *pipelinerun.FixtureOutcome,
	sharkOut stage.SharkOutput,
	report *FixtureReport,
	fail func(error) pipelinerun.FixtureOutcome,
) pipelinerun.FixtureOutcome {
	report.Alerts, report.Excluded = sharkOut.Alerts, sharkOut.Excluded
	if sharkOut.Fixture.ID == "" {
		sharkOut.Fixture = outcome.Fixture
	}
	result, err := o.sink.Commit(ctx, CommitInput{
		RunID:   opts.RunID,
		Shark:   sharkOut,
		DryRun:  opts.DryRun,
		PushAll: opts.PushAll,
	})
	if err != nil {
		return fail(err)
	}
	outcome.Alerts = len(result.Alerts)
	outcome.Excluded = len(sharkOut.Excluded)
	return o.complete(outcome)
}

func (o *PipelineOrchestrator) complete(outcome *pipelinerun.FixtureOutcome) pipelinerun.FixtureOutcome {
	if err := outcome.Transition(pipelinerun.StateCompleted, o.now()); err != nil {
		outcome.Fail(outcome.State, ReasonUnknown, err.Error(), o.now())
	}
	return *outcome
}

// syncRosters registers and refreshes both teams. A failed scrape is tolerated when a prior
// roster exists; an unknown team fails the fixture.
func (o *PipelineOrchestrator) syncRosters(ctx context.Context, opts RunOptions, fx fixture.Fixture) ([]stage.PlayerRef, error) {
	players := make([]stage.PlayerRef, 0, 50)
	for _, name := range fx.Teams() {
		t, err := o.rosters.Ensure(ctx, name, fx.League, EnsureOptions{DryRun: opts.DryRun})
		if err != nil {
			return nil, err
		}
		res, err := o.rosters.Sync(ctx, t, SyncOptions{MaxAge: opts.RosterMaxAge, DryRun: opts.DryRun})
		if err != nil {
			if !crerr.Is(err, ErrScrapeParse) || len(res.Roster) == 0 {
				return nil, err
			}
			o.logger.WarnContext(ctx, "using prior roster after scrape failure", "team", t.Name, "players", len(res.Roster), "error", err)
		}
		players = append(players, playerRefs(t, res.Roster)...)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no active players for %s", ErrDataNotFound, fx.Name())
	}
	return players, nil
}

func (o *PipelineOrchestrator) storedPlayers(ctx context.Context, fx fixture.Fixture) ([]stage.PlayerRef, error) {
	players := make([]stage.PlayerRef, 0, 50)
	for _, name := range fx.Teams() {
		t, entries, err := o.rosters.StoredRoster(ctx, name, fx.League)
		if err != nil {
			return nil, err
		}
		players = append(players, playerRefs(t, entries)...)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no stored roster for %s", ErrDataNotFound, fx.Name())
	}
	return players, nil
}

// fanOut runs a per-player stage for every player concurrently. For the analyst stage only
// players with a completed research result are run.
func (o *PipelineOrchestrator) fanOut(
	ctx context.Context,
	opts RunOptions,
	fx fixture.Fixture,
	players []stage.PlayerRef,
	st stage.Stage,
	upstream []stage.Result,
) []stage.Result {
	byPlayer := make(map[string]stage.Result, len(upstream))
	for _, r := range stage.Latest(upstream) {
		if r.Completed() {
			byPlayer[r.PlayerID] = r
		}
	}

	p := pool.NewWithResults[stage.Result]().WithMaxGoroutines(o.cfg.PlayerParallelism)
	for _, player := range players {
		player := player
		in := StageInput{RunID: opts.RunID, Fixture: fx, Player: player, DryRun: opts.DryRun}
		if st == stage.Analyst {
			r, ok := byPlayer[player.PlayerID]
			if !ok {
				continue
			}
			in.Upstream = &r
		}
		p.Go(func() stage.Result {
			res, _ := o.chain.Run(ctx, st, in)
			return res
		})
	}

	out := make([]stage.Result, 0, len(players))
	for _, r := range p.Wait() {
		if r.ID != "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })

	failed := 0
	for _, r := range out {
		if !r.Completed() {
			failed++
		}
	}
	o.logger.InfoContext(ctx, "stage fan-out finished", "fixture_id", fx.ID, "stage", st, "results", len(out), "failed", failed)
	return out
}

func (o *PipelineOrchestrator) startRun(ctx context.Context, opts RunOptions, summary RunSummary) {
	if opts.DryRun || o.runs == nil {
		return
	}
	run := pipelinerun.Run{ID: summary.RunID, Mode: summary.Mode, Kind: summary.Kind, StartedAt: summary.StartedAt}
	if err := o.runs.Create(ctx, run); err != nil {
		o.logger.ErrorContext(ctx, "record pipeline run failed", "error", err)
	}
}

func (o *PipelineOrchestrator) saveOutcome(ctx context.Context, opts RunOptions, outcome pipelinerun.FixtureOutcome) {
	if opts.DryRun || o.runs == nil {
		return
	}
	if err := o.runs.SaveOutcome(context.WithoutCancel(ctx), opts.RunID, outcome); err != nil {
		o.logger.ErrorContext(ctx, "record fixture outcome failed", "fixture_id", outcome.Fixture.ID, "error", err)
	}
}

func (o *PipelineOrchestrator) finishRun(ctx context.Context, opts RunOptions, at time.Time) {
	if opts.DryRun || o.runs == nil {
		return
	}
	if err := o.runs.Finish(context.WithoutCancel(ctx), opts.RunID, at); err != nil {
		o.logger.ErrorContext(ctx, "finish pipeline run failed", "error", err)
	}
}

// flushUsage runs on every exit path, including cancellation.
func (o *PipelineOrchestrator) flushUsage(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageFlushTimeout)
	defer cancel()
	if err := o.tracker.Flush(flushCtx); err != nil {
		o.logger.WarnContext(ctx, "flush usage records timed out", "error", err)
	}
}

func playerRefs(t team.Team, entries []roster.Entry) []stage.PlayerRef {
	out := make([]stage.PlayerRef, 0, len(entries))
	for _, e := range entries {
		if !e.Active {
			continue
		}
		out = append(out, stage.PlayerRef{
			PlayerID: e.PlayerID,
			Name:     e.Name,
			TeamID:   t.ID,
			TeamName: t.Name,
			Position: e.Position,
		})
	}
	return out
}

func filterStage(results []stage.Result, st stage.Stage) []stage.Result {
	out := make([]stage.Result, 0, len(results))
	for _, r := range results {
		if r.Stage == st {
			out = append(out, r)
		}
	}
	return out
}

// playersFromResults recovers player context from persisted research or analyst payloads.
func playersFromResults(results []stage.Result) []stage.PlayerRef {
	seen := make(map[string]struct{}, len(results))
	out := make([]stage.PlayerRef, 0, len(results))
	for _, r := range results {
		if r.PlayerID == "" {
			continue
		}
		if _, ok := seen[r.PlayerID]; ok {
			continue
		}
		var envelope struct {
			Player stage.PlayerRef `json:"player"`
		}
		ref := stage.PlayerRef{PlayerID: r.PlayerID}
		if r.Completed() && sonic.Unmarshal(r.Payload, &envelope) == nil && envelope.Player.Name != "" {
			ref = envelope.Player
		}
		seen[r.PlayerID] = struct{}{}
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}
