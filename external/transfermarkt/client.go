// Package transfermarkt looks up clubs and scrapes squad pages from transfermarkt.com.
package transfermarkt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/cache"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL    = "https://www.transfermarkt.com"
	defaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	searchPath        = "/schnellsuche/ergebnis/schnellsuche"
	maxPageBytes      = 4 << 20
	maxCachedSearches = 512
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// SearchTTL keeps quick-search results per normalized name. Zero disables the cache.
	SearchTTL time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.Flight[[]byte]
	searches   *cache.Store[[]usecase.TeamCandidate]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	breaker := resilience.NewCircuitBreakerFromConfig("transfermarkt", cfg.CircuitBreaker,
		resilience.CountFailuresWhen(usecase.IsTransient),
		resilience.LogStateChanges(logger),
	)

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logger,
		breaker:    breaker,
	}
	if cfg.SearchTTL > 0 {
		c.searches = cache.NewStore[[]usecase.TeamCandidate](cfg.SearchTTL, maxCachedSearches)
	}
	return c
}

// SearchTeams runs the site quick search and returns every club link on the results page.
func (c *Client) SearchTeams(ctx context.Context, name string) ([]usecase.TeamCandidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", usecase.ErrInvalidInput)
	}

	if c.searches == nil {
		return c.searchTeams(ctx, name)
	}
	return c.searches.GetOrLoad(ctx, "search:"+strings.ToLower(name), func(ctx context.Context) ([]usecase.TeamCandidate, error) {
		return c.searchTeams(ctx, name)
	})
}

func (c *Client) searchTeams(ctx context.Context, name string) ([]usecase.TeamCandidate, error) {
	raw, err := c.get(ctx, searchPath+"?query="+url.QueryEscape(name))
	if err != nil {
		return nil, crerr.Wrapf(err, "search teams %q", name)
	}

	candidates, err := parseSearchResults(raw)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "parse search results %q", name), usecase.ErrScrapeParse)
	}
	return candidates, nil
}

// FetchSquad scrapes /{slug}/kader/verein/{id}.
func (c *Client) FetchSquad(ctx context.Context, externalID, slug string) ([]roster.ScrapedPlayer, error) {
	if _, err := strconv.ParseInt(strings.TrimSpace(externalID), 10, 64); err != nil {
		return nil, fmt.Errorf("%w: invalid club id %q", usecase.ErrInvalidInput, externalID)
	}
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return nil, fmt.Errorf("%w: club slug is required", usecase.ErrInvalidInput)
	}

	path := "/" + url.PathEscape(slug) + "/kader/verein/" + strings.TrimSpace(externalID)
	raw, err := c.get(ctx, path)
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch squad %s", path)
	}

	players, err := parseSquad(raw)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "parse squad %s", path), usecase.ErrScrapeParse)
	}
	return players, nil
}

// get shares one guarded fetch between concurrent callers of the same page.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	raw, _, err := c.flight.Do(path, func() ([]byte, error) {
		return resilience.Guard(c.breaker, func() ([]byte, error) {
			return c.execute(ctx, c.baseURL+path)
		})
	})
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
	}
	return raw, err
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Mark(crerr.Wrap(err, "send request"), usecase.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "read response body"), usecase.ErrTransientNetwork)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: transfermarkt page %s", usecase.ErrDataNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests:
		wait, _ := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, &usecase.RateLimitError{Provider: "transfermarkt", RetryAfter: wait}
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusForbidden:
		// Cloudflare answers bursts with 403; treat it like an overloaded upstream.
		return nil, fmt.Errorf("%w: transfermarkt status=%d", usecase.ErrTransientNetwork, resp.StatusCode)
	default:
		return nil, fmt.Errorf("transfermarkt status=%d", resp.StatusCode)
	}
}
