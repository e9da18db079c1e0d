package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/id"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/ratelimit"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

const (
	defaultNewsLimit    = 10
	defaultNewsLookback = 14 * 24 * time.Hour

	exclusionInsufficientData = "insufficient data"
)

type ReasoningRequest struct {
	Stage       stage.Stage
	System      string
	User        string
	WebSearch   bool
	MaxTokens   int
	Temperature float64
}

type ReasoningUsage struct {
	PromptTokens     int
	CompletionTokens int
	ReasoningTokens  int
}

type ReasoningResponse struct {
	Content string
	Model   string
	Usage   ReasoningUsage
}

// ReasoningService is the external language-model endpoint. Implementations classify failures
// with ErrReasoningService, ErrTransientNetwork or *RateLimitError.
type ReasoningService interface {
	Complete(ctx context.Context, req ReasoningRequest) (ReasoningResponse, error)
}

// PromptCatalog renders a stage prompt from its template data.
type PromptCatalog interface {
	Render(st stage.Stage, data any) (ReasoningRequest, error)
}

type ResearchPromptData struct {
	Fixture     string
	FixtureDate string
	League      string
	Player      stage.PlayerRef
	News        []news.Item
}

type AnalystPromptData struct {
	Fixture     string
	FixtureDate string
	Player      stage.PlayerRef
	Research    stage.ResearchOutput
}

type SharkPromptData struct {
	Fixture     string
	FixtureDate string
	HomeTeam    string
	AwayTeam    string
	Assessments []stage.AnalystOutput
}

// StageInput is everything one stage invocation may read. Research needs Player; Analyst needs
// Player and Upstream (a Research result); Shark needs Players and Upstreams (the fixture's
// Analyst results, completed or failed).
type StageInput struct {
	RunID     string
	Fixture   fixture.Fixture
	Player    stage.PlayerRef
	Players   []stage.PlayerRef
	Upstream  *stage.Result
	Upstreams []stage.Result
	DryRun    bool
}

type AgentChainConfig struct {
	Policy         CallPolicy
	AlertThreshold alert.RiskTag
	NewsLimit      int
	NewsLookback   time.Duration
}

// AgentChain runs the Research, Analyst and Shark stages. Every reasoning call goes through one
// shared limiter so concurrent fixtures never exceed the service quota.
type AgentChain struct {
	reasoning ReasoningService
	prompts   PromptCatalog
	newsSrc   news.Provider
	newsRepo  news.Repository
	results   stage.Repository
	limiter   *ratelimit.Limiter
	tracker   *UsageTracker
	ids       id.Generator
	logger    *logging.Logger
	validate  *validator.Validate
	cfg       AgentChainConfig
	now       func() time.Time
}

func NewAgentChain(
	reasoning ReasoningService,
	prompts PromptCatalog,
	newsSrc news.Provider,
	newsRepo news.Repository,
	results stage.Repository,
	limiter *ratelimit.Limiter,
	tracker *UsageTracker,
	ids id.Generator,
	cfg AgentChainConfig,
	logger *logging.Logger,
) *AgentChain {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(4)
	}
	if cfg.AlertThreshold == "" {
		cfg.AlertThreshold = alert.RiskMedium
	}
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = defaultNewsLimit
	}
	if cfg.NewsLookback <= 0 {
		cfg.NewsLookback = defaultNewsLookback
	}
	cfg.Policy = cfg.Policy.normalized()

	return &AgentChain{
		reasoning: reasoning,
		prompts:   prompts,
		newsSrc:   newsSrc,
		newsRepo:  newsRepo,
		results:   results,
		limiter:   limiter,
		tracker:   tracker,
		ids:       ids,
		logger:    logger,
		validate:  validator.New(),
		cfg:       cfg,
		now:       time.Now,
	}
}

type stageCall struct {
	payload   any
	inputRef  string
	attempts  int
	tokensIn  int
	tokensOut int
}

// Run executes one stage and records its result. A failed stage still returns a Result with
// StatusFailed alongside the error, so callers can keep it in the chain.
func (c *AgentChain) Run(ctx context.Context, st stage.Stage, in StageInput) (stage.Result, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AgentChain.Run."+string(st))
	defer span.End()

	if st == stage.Analyst && in.Player.PlayerID == "" && in.Upstream != nil {
		in.Player.PlayerID = in.Upstream.PlayerID
	}

	var (
		call stageCall
		err  error
	)
	switch st {
	case stage.Research:
		call, err = c.research(ctx, in)
	case stage.Analyst:
		call, err = c.analyze(ctx, in)
	case stage.Shark:
		call, err = c.score(ctx, in)
	default:
		return stage.Result{}, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, st)
	}

	result, buildErr := c.newResult(st, in, call, err)
	if buildErr != nil {
		return stage.Result{}, buildErr
	}
	if !in.DryRun && c.results != nil {
		if appendErr := c.results.Append(context.WithoutCancel(ctx), result); appendErr != nil {
			c.logger.ErrorContext(ctx, "persist stage result failed",
				"fixture_id", in.Fixture.ID,
				"player_id", result.PlayerID,
				"stage", st,
				"error", appendErr,
			)
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "stage failed",
			"fixture_id", in.Fixture.ID,
			"player", in.Player.Name,
			"stage", st,
			"attempts", call.attempts,
			"reason", Classify(err),
			"error", err,
		)
	}
	return result, err
}

func (c *AgentChain) newResult(st stage.Stage, in StageInput, call stageCall, callErr error) (stage.Result, error) {
	resultID, err := c.ids.NewID()
	if err != nil {
		return stage.Result{}, err
	}
	result := stage.Result{
		ID:        resultID,
		RunID:     in.RunID,
		FixtureID: in.Fixture.ID,
		Stage:     st,
		Status:    stage.StatusCompleted,
		InputRef:  call.inputRef,
		Attempts:  call.attempts,
		TokensIn:  call.tokensIn,
		TokensOut: call.tokensOut,
		CreatedAt: c.now().UTC(),
	}
	if st.PlayerScoped() {
		result.PlayerID = in.Player.PlayerID
	}
	if callErr != nil {
		result.Status = stage.StatusFailed
		result.Error = callErr.Error()
		return result, nil
	}

	payload, err := sonic.Marshal(call.payload)
	if err != nil {
		return stage.Result{}, fmt.Errorf("encode %s payload: %w", st, err)
	}
	result.Payload = payload
	return result, nil
}

func (c *AgentChain) research(ctx context.Context, in StageInput) (stageCall, error) {
	if err := c.validate.Struct(in.Player); err != nil {
		return stageCall{}, fmt.Errorf("%w: research player: %v", ErrInvalidInput, err)
	}

	items := c.searchNews(ctx, in)
	data := ResearchPromptData{
		Fixture:     in.Fixture.Name(),
		FixtureDate: in.Fixture.KickoffAt.UTC().Format(time.RFC3339),
		League:      in.Fixture.League,
		Player:      in.Player,
		News:        items,
	}

	var wire researchWire
	call, err := c.complete(ctx, stage.Research, in, data, &wire)
	if err != nil {
		return call, err
	}

	out := stage.ResearchOutput{
		Player:      in.Player,
		Summary:     strings.TrimSpace(wire.Summary),
		KeyFindings: compactStrings(wire.KeyFindings),
		Sources:     wire.sources(),
		Confidence:  wire.Confidence,
		SearchedAt:  c.now().UTC(),
	}
	for _, item := range items {
		out.NewsItemIDs = append(out.NewsItemIDs, item.ID)
	}
	call.payload = out
	return call, nil
}

func (c *AgentChain) analyze(ctx context.Context, in StageInput) (stageCall, error) {
	if in.Upstream == nil || !in.Upstream.Completed() || in.Upstream.Stage != stage.Research {
		return stageCall{}, fmt.Errorf("%w: analyst needs a completed research result for %s", ErrDataNotFound, in.Player.Name)
	}
	var research stage.ResearchOutput
	if err := sonic.Unmarshal(in.Upstream.Payload, &research); err != nil {
		return stageCall{}, fmt.Errorf("%w: decode research payload: %v", ErrDataNotFound, err)
	}
	player := in.Player
	if player.Name == "" {
		player = research.Player
	}

	data := AnalystPromptData{
		Fixture:     in.Fixture.Name(),
		FixtureDate: in.Fixture.KickoffAt.UTC().Format(time.RFC3339),
		Player:      player,
		Research:    research,
	}

	var wire analystWire
	call, err := c.complete(ctx, stage.Analyst, in, data, &wire)
	call.inputRef = in.Upstream.ID
	if err != nil {
		return call, err
	}

	call.payload = stage.AnalystOutput{
		Player:       player,
		Likelihood:   wire.Likelihood,
		Availability: normalizeAvailability(wire.Availability),
		Rationale:    strings.TrimSpace(wire.Rationale),
	}
	return call, nil
}

func (c *AgentChain) score(ctx context.Context, in StageInput) (stageCall, error) {
	assessed := make([]stage.AnalystOutput, 0, len(in.Upstreams))
	assessedIDs := make(map[string]struct{}, len(in.Upstreams))
	refs := make([]string, 0, len(in.Upstreams))
	for _, r := range stage.Latest(in.Upstreams) {
		if r.Stage != stage.Analyst || !r.Completed() {
			continue
		}
		var out stage.AnalystOutput
		if err := sonic.Unmarshal(r.Payload, &out); err != nil {
			c.logger.WarnContext(ctx, "skip undecodable analyst payload", "result_id", r.ID, "error", err)
			continue
		}
		if _, dup := assessedIDs[out.Player.PlayerID]; dup {
			continue
		}
		assessedIDs[out.Player.PlayerID] = struct{}{}
		assessed = append(assessed, out)
		refs = append(refs, r.ID)
	}

	sharkOut := stage.SharkOutput{
		Fixture:   in.Fixture,
		Threshold: c.cfg.AlertThreshold,
		Alerts:    []stage.AlertCandidate{},
		Verdicts:  []stage.AlertCandidate{},
		Assessed:  assessed,
		Excluded:  exclusions(in.Players, assessedIDs),
	}

	call := stageCall{inputRef: strings.Join(refs, ",")}
	if len(assessed) == 0 {
		// Nothing to score; no reasoning call is made.
		call.payload = sharkOut
		return call, nil
	}

	data := SharkPromptData{
		Fixture:     in.Fixture.Name(),
		FixtureDate: in.Fixture.KickoffAt.UTC().Format(time.RFC3339),
		HomeTeam:    in.Fixture.HomeTeam,
		AwayTeam:    in.Fixture.AwayTeam,
		Assessments: assessed,
	}

	var wire sharkWire
	completed, err := c.complete(ctx, stage.Shark, in, data, &wire)
	completed.inputRef = call.inputRef
	if err != nil {
		return completed, err
	}

	sharkOut.Verdicts = c.collapseVerdicts(ctx, in, wire.Alerts, assessed)
	for _, v := range sharkOut.Verdicts {
		if v.RiskTag.AtLeast(c.cfg.AlertThreshold) {
			sharkOut.Alerts = append(sharkOut.Alerts, v)
		}
	}
	completed.payload = sharkOut
	return completed, nil
}

// collapseVerdicts maps model verdicts onto assessed players (by id, then by normalized name),
// drops unknown players, keeps the highest tag per player and ranks the result.
func (c *AgentChain) collapseVerdicts(ctx context.Context, in StageInput, verdicts []sharkVerdictWire, assessed []stage.AnalystOutput) []stage.AlertCandidate {
	byID := make(map[string]stage.AnalystOutput, len(assessed))
	byName := make(map[string][]stage.AnalystOutput, len(assessed))
	for _, a := range assessed {
		byID[a.Player.PlayerID] = a
		key := textnorm.Name(a.Player.Name)
		byName[key] = append(byName[key], a)
	}

	best := make(map[string]stage.AlertCandidate, len(verdicts))
	for _, v := range verdicts {
		a, ok := byID[strings.TrimSpace(v.PlayerID)]
		if !ok {
			matches := byName[textnorm.Name(v.PlayerName)]
			if len(matches) != 1 {
				c.logger.WarnContext(ctx, "shark verdict does not match one assessed player",
					"fixture_id", in.Fixture.ID,
					"player", v.PlayerName,
					"matches", len(matches),
				)
				continue
			}
			a = matches[0]
		}

		tag, err := alert.ParseRiskTag(v.RiskTag)
		if err != nil {
			continue
		}
		candidate := stage.AlertCandidate{
			Player:      a.Player,
			RiskTag:     tag,
			Explanation: strings.TrimSpace(v.Explanation),
			Likelihood:  a.Likelihood,
		}
		if prev, seen := best[a.Player.PlayerID]; seen && prev.RiskTag.Rank() >= tag.Rank() {
			continue
		}
		best[a.Player.PlayerID] = candidate
	}

	out := make([]stage.AlertCandidate, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskTag.Rank() != out[j].RiskTag.Rank() {
			return out[i].RiskTag.Rank() > out[j].RiskTag.Rank()
		}
		if out[i].Likelihood != out[j].Likelihood {
			return out[i].Likelihood > out[j].Likelihood
		}
		return out[i].Player.PlayerID < out[j].Player.PlayerID
	})
	return out
}

// complete renders the stage prompt and calls the reasoning service under the shared limiter
// and the reasoning retry policy. Usage is recorded for every attempt that reached the service.
func (c *AgentChain) complete(ctx context.Context, st stage.Stage, in StageInput, data any, out any) (stageCall, error) {
	if c.reasoning == nil || c.prompts == nil {
		return stageCall{}, fmt.Errorf("%w: reasoning service is not configured", ErrDependencyUnavailable)
	}
	req, err := c.prompts.Render(st, data)
	if err != nil {
		return stageCall{}, fmt.Errorf("%w: render %s prompt: %v", ErrInvalidInput, st, err)
	}
	req.Stage = st

	var call stageCall
	policy := c.cfg.Policy.reasoningPolicy(ctx, c.logger, string(st))
	_, attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (struct{}, error) {
		release, err := c.limiter.Acquire(ctx)
		if err != nil {
			return struct{}{}, err
		}
		defer release()

		callCtx, cancel := c.cfg.Policy.callContext(ctx)
		defer cancel()

		start := time.Now()
		resp, callErr := c.reasoning.Complete(callCtx, req)
		call.tokensIn += resp.Usage.PromptTokens
		call.tokensOut += resp.Usage.CompletionTokens
		c.tracker.Track(usage.Record{
			RunID:           in.RunID,
			Stage:           string(st),
			FixtureID:       in.Fixture.ID,
			PlayerID:        in.Player.PlayerID,
			Model:           resp.Model,
			TokensIn:        resp.Usage.PromptTokens,
			TokensOut:       resp.Usage.CompletionTokens,
			ReasoningTokens: resp.Usage.ReasoningTokens,
			Latency:         time.Since(start),
			Failed:          callErr != nil,
		})
		if callErr != nil {
			return struct{}{}, callErr
		}
		return struct{}{}, c.decode(resp.Content, out)
	})
	call.attempts = int(attempts)
	if err != nil {
		return call, crerr.Wrapf(err, "%s stage", st)
	}
	return call, nil
}

func (c *AgentChain) decode(content string, out any) error {
	raw := extractJSON(content)
	if raw == "" {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}
	if err := sonic.UnmarshalString(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func (c *AgentChain) searchNews(ctx context.Context, in StageInput) []news.Item {
	if c.newsSrc == nil {
		return nil
	}

	query := news.Query{
		PlayerName: in.Player.Name,
		TeamName:   in.Player.TeamName,
		Since:      c.now().Add(-c.cfg.NewsLookback),
		Limit:      c.cfg.NewsLimit,
	}
	start := time.Now()
	items, _, err := retry.Do(ctx, c.cfg.Policy.transientPolicy(ctx, c.logger, "news_search"), func(ctx context.Context, _ int) ([]news.Item, error) {
		callCtx, cancel := c.cfg.Policy.callContext(ctx)
		defer cancel()
		return c.newsSrc.Search(callCtx, query)
	})
	c.tracker.Track(usage.Record{
		RunID:     in.RunID,
		Stage:     usage.StageNewsSearch,
		FixtureID: in.Fixture.ID,
		PlayerID:  in.Player.PlayerID,
		Latency:   time.Since(start),
		Failed:    err != nil,
	})
	if err != nil {
		// Research continues on the reasoning path alone.
		c.logger.WarnContext(ctx, "news search failed", "player", in.Player.Name, "error", err)
		return nil
	}

	c.logger.DebugContext(ctx, "news articles fetched", "player", in.Player.Name, "articles", len(items))

	fetchedAt := c.now().UTC()
	out := make([]news.Item, 0, min(len(items), c.cfg.NewsLimit))
	for _, item := range items {
		if len(out) == c.cfg.NewsLimit {
			break
		}
		item.PlayerID = in.Player.PlayerID
		if item.FetchedAt.IsZero() {
			item.FetchedAt = fetchedAt
		}
		if item.ID == "" {
			itemID, idErr := c.ids.NewID()
			if idErr != nil {
				continue
			}
			item.ID = itemID
		}
		if item.Validate() != nil {
			continue
		}
		out = append(out, item)
	}

	if !in.DryRun && c.newsRepo != nil && len(out) > 0 {
		if err := c.newsRepo.InsertIfAbsent(ctx, out); err != nil {
			c.logger.WarnContext(ctx, "store news items failed", "player", in.Player.Name, "error", err)
		}
	}
	return out
}

func normalizeAvailability(v string) string {
	switch v = strings.ToLower(strings.TrimSpace(v)); v {
	case stage.AvailabilityAvailable, stage.AvailabilityDoubtful, stage.AvailabilityOut:
		return v
	default:
		return stage.AvailabilityUnknown
	}
}

func exclusions(players []stage.PlayerRef, assessed map[string]struct{}) []stage.Exclusion {
	out := make([]stage.Exclusion, 0)
	for _, p := range players {
		if _, ok := assessed[p.PlayerID]; ok {
			continue
		}
		out = append(out, stage.Exclusion{PlayerID: p.PlayerID, Name: p.Name, Reason: exclusionInsufficientData})
	}
	return out
}

func compactStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// extractJSON returns the outermost JSON object or array in v, tolerating code fences and prose.
func extractJSON(v string) string {
	start := strings.IndexAny(v, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if v[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(v, closer)
	if end < start {
		return ""
	}
	return v[start : end+1]
}
