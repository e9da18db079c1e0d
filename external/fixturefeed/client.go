package fixturefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxFeedBytes = 8 << 20

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads GET {base}/fixtures?league=&from=&to= and accepts either {"fixtures":[...]}
// or a bare array.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
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
		httpClient.Timeout = 15 * time.Second
	}

	breaker := resilience.NewCircuitBreakerFromConfig("fixture_feed", cfg.CircuitBreaker,
		resilience.CountFailuresWhen(usecase.IsTransient),
		resilience.LogStateChanges(logger),
	)

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		logger:     logger,
		breaker:    breaker,
	}
}

func (c *Client) ListFixtures(ctx context.Context, query fixture.Query) ([]fixture.Fixture, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: fixture feed url is not configured", usecase.ErrSourceUnavailable)
	}

	params := url.Values{}
	if league := strings.TrimSpace(query.League); league != "" {
		params.Set("league", league)
	}
	if !query.Window.From.IsZero() {
		params.Set("from", query.Window.From.UTC().Format(time.RFC3339))
	}
	if !query.Window.To.IsZero() {
		params.Set("to", query.Window.To.UTC().Format(time.RFC3339))
	}
	fullURL := c.baseURL + "/fixtures"
	if encoded := params.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err := resilience.Guard(c.breaker, func() ([]byte, error) {
		return c.execute(ctx, fullURL)
	})
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", usecase.ErrSourceUnavailable, err)
	}
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "list fixtures"), usecase.ErrSourceUnavailable)
	}

	records, err := decodeFeed(raw)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "decode fixture feed"), usecase.ErrSourceUnavailable)
	}

	fixtures, skipped := assemble(records, query)
	for _, skipErr := range skipped {
		c.logger.WarnContext(ctx, "skip invalid fixture from feed", "error", skipErr)
	}
	return fixtures, nil
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Mark(crerr.Wrap(err, "send request"), usecase.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "read response body"), usecase.ErrTransientNetwork)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &usecase.RateLimitError{Provider: "fixturefeed"}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: fixture feed status=%d", usecase.ErrTransientNetwork, resp.StatusCode)
	default:
		return nil, fmt.Errorf("fixture feed status=%d", resp.StatusCode)
	}
}

func decodeFeed(raw []byte) ([]record, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var records []record
		if err := sonic.UnmarshalString(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var env envelope
	if err := sonic.UnmarshalString(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Fixtures, nil
}
