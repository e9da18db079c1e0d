package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/player-risk-alerts/external/fixturefeed"
	"github.com/riskibarqy/player-risk-alerts/external/grok"
	"github.com/riskibarqy/player-risk-alerts/external/newsapi"
	"github.com/riskibarqy/player-risk-alerts/external/transfermarkt"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
	"github.com/riskibarqy/player-risk-alerts/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/player-risk-alerts/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/player-risk-alerts/internal/infrastructure/usageledger"
	"github.com/riskibarqy/player-risk-alerts/internal/infrastructure/warehouse"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/id"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/ratelimit"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
	"github.com/riskibarqy/player-risk-alerts/internal/prompts"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

const connectTimeout = 5 * time.Second

type Options struct {
	// InMemory keeps every store in process memory. Nothing survives the process.
	InMemory bool
	// FixtureParallelism overrides the configured value when positive.
	FixtureParallelism int
	// Component names the binary in postgres application_name, e.g. "pipeline" or "api".
	Component string
}

// Container holds the wired services shared by the CLI and the API.
type Container struct {
	Config       config.Config
	Logger       *logging.Logger
	Fixtures     fixture.Source
	Orchestrator *usecase.PipelineOrchestrator
	Preparation  *usecase.RosterPreparationService
	Rosters      *usecase.RosterSynchronizer
	Alerts       *usecase.AlertQueryService
	Runs         *usecase.RunQueryService
	Tracker      *usecase.UsageTracker

	closers []func(context.Context) error
}

type stores struct {
	teams   team.Repository
	rosters roster.Repository
	news    news.Repository
	results stage.Repository
	alerts  alert.Repository
	runs    pipelinerun.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	st, err := c.openStores(ctx, opts)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	ledger, err := c.openLedger(ctx, opts)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	sink, err := c.openWarehouse(ctx)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	catalog, err := prompts.Load(cfg.PromptSport)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	policy := usecase.CallPolicy{
		Timeout:        cfg.CallTimeout,
		MaxAttempts:    cfg.CallMaxAttempts,
		BaseDelay:      cfg.CallBaseDelay,
		MaxDelay:       cfg.CallMaxDelay,
		RateLimitDelay: cfg.CallRateLimitDelay,
	}
	threshold, err := alert.ParseRiskTag(cfg.AlertThreshold)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	ids := id.NewUUIDGenerator()
	c.Tracker = usecase.NewUsageTracker(ledger, usecase.UsageTrackerConfig{}, logger)
	c.closers = append(c.closers, c.Tracker.Close)

	c.Fixtures = newFixtureSource(cfg, logger)
	provider := transfermarkt.NewClient(transfermarkt.ClientConfig{
		BaseURL:        cfg.TransfermarktBaseURL,
		UserAgent:      cfg.TransfermarktUserAgent,
		Timeout:        cfg.TransfermarktTimeout,
		Logger:         logger,
		CircuitBreaker: cfg.TransfermarktCircuit,
		SearchTTL:      cfg.TransfermarktSearchTTL,
	})
	reasoning := grok.NewClient(grok.ClientConfig{
		BaseURL:     cfg.GrokBaseURL,
		APIKey:      cfg.GrokAPIKey,
		Model:       cfg.GrokModel,
		MaxTokens:   cfg.GrokMaxTokens,
		Temperature: cfg.GrokTemperature,
		Timeout:     cfg.CallTimeout,
		Logger:      logger,
	})
	if !cfg.ReasoningConfigured() {
		logger.Warn("reasoning service key not set, agent stages will fail", "model", cfg.GrokModel)
	}

	var newsSrc news.Provider
	if cfg.NewsAPIKey != "" {
		newsSrc = newsapi.NewClient(newsapi.ClientConfig{
			BaseURL:        cfg.NewsAPIBaseURL,
			APIKey:         cfg.NewsAPIKey,
			Language:       cfg.NewsAPILanguage,
			Timeout:        cfg.NewsAPITimeout,
			Logger:         logger,
			CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		})
	} else {
		logger.Info("news search disabled, research runs on stored news only")
	}

	c.Rosters = usecase.NewRosterSynchronizer(st.teams, st.rosters, provider, ids, c.Tracker, policy, logger)
	c.Preparation = usecase.NewRosterPreparationService(c.Fixtures, st.teams, c.Rosters, logger)

	chain := usecase.NewAgentChain(
		reasoning,
		catalog,
		newsSrc,
		st.news,
		st.results,
		ratelimit.NewLimiter(cfg.ReasoningConcurrency),
		c.Tracker,
		ids,
		usecase.AgentChainConfig{
			Policy:         policy,
			AlertThreshold: threshold,
			NewsLimit:      cfg.NewsLimit,
			NewsLookback:   cfg.NewsLookback,
		},
		logger,
	)
	alertSink := usecase.NewAlertSink(st.alerts, sink, ids, logger)

	fixtureParallelism := cfg.FixtureParallelism
	if opts.FixtureParallelism > 0 {
		fixtureParallelism = opts.FixtureParallelism
	}
	c.Orchestrator = usecase.NewPipelineOrchestrator(
		c.Fixtures,
		c.Rosters,
		chain,
		alertSink,
		st.results,
		st.runs,
		c.Tracker,
		usecase.OrchestratorConfig{
			FixtureParallelism: fixtureParallelism,
			PlayerParallelism:  cfg.PlayerParallelism,
			RosterMaxAge:       cfg.RosterMaxAge,
		},
		logger,
	)
	c.Alerts = usecase.NewAlertQueryService(st.alerts)
	c.Runs = usecase.NewRunQueryService(st.runs, ledger)

	return c, nil
}

// NewHTTPServer wires the read-only API on top of the container.
func (c *Container) NewHTTPServer() (*http.Server, error) {
	if c.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	return newHTTPServer(c), nil
}

// Close flushes pending usage records and releases connections in reverse open order.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) openStores(ctx context.Context, opts Options) (stores, error) {
	if opts.InMemory {
		teams := memory.NewTeamRepository()
		return stores{
			teams:   teams,
			rosters: memory.NewRosterRepository(teams),
			news:    memory.NewNewsRepository(),
			results: memory.NewStageRepository(),
			alerts:  memory.NewAlertRepository(),
			runs:    memory.NewRunRepository(),
		}, nil
	}

	db, err := openPostgres(ctx, c.Config, opts.Component)
	if err != nil {
		return stores{}, err
	}
	c.closers = append(c.closers, func(context.Context) error { return db.Close() })

	return stores{
		teams:   postgres.NewTeamRepository(db),
		rosters: postgres.NewRosterRepository(db),
		news:    postgres.NewNewsRepository(db),
		results: postgres.NewStageRepository(db),
		alerts:  postgres.NewAlertRepository(db),
		runs:    postgres.NewRunRepository(db),
	}, nil
}

func (c *Container) openLedger(ctx context.Context, opts Options) (usage.Ledger, error) {
	if opts.InMemory || c.Config.RedisURL == "" {
		return memory.NewUsageLedger(), nil
	}

	redisOpts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	c.closers = append(c.closers, func(context.Context) error { return rdb.Close() })

	ledger := usageledger.NewRedisLedger(rdb,
		usageledger.WithPrefix(c.Config.UsagePrefix),
		usageledger.WithRetention(c.Config.UsageRetention),
	)
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := ledger.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return ledger, nil
}

func (c *Container) openWarehouse(ctx context.Context) (alert.Warehouse, error) {
	if c.Config.WarehousePath == "" {
		return nil, nil
	}
	w, err := warehouse.Open(ctx, c.Config.WarehousePath)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func(context.Context) error { return w.Close() })
	return w, nil
}

func newFixtureSource(cfg config.Config, logger *logging.Logger) fixture.Source {
	switch {
	case cfg.FixtureFeedURL != "":
		return fixturefeed.NewClient(fixturefeed.ClientConfig{
			BaseURL:        cfg.FixtureFeedURL,
			Token:          cfg.FixtureFeedToken,
			Timeout:        cfg.FixtureFeedTimeout,
			Logger:         logger,
			CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		})
	case cfg.FixtureFile != "":
		return fixturefeed.NewFileSource(cfg.FixtureFile, logger)
	default:
		return memory.NewFailingFixtureSource(fmt.Errorf("%w: set FIXTURE_FEED_URL or FIXTURE_FILE", usecase.ErrSourceUnavailable))
	}
}

func openPostgres(ctx context.Context, cfg config.Config, component string) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, postgresApplicationName(cfg.DBApplicationName, component))
	db, err := openTracedPostgres(dsn, component)
	if err != nil {
		return nil, fmt.Errorf("open postgres %s: %w", describeDBTarget(dsn), err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", describeDBTarget(dsn), err)
	}
	return db, nil
}
