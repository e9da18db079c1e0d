// Package newsapi searches the NewsAPI /v2/everything endpoint for player news.
package newsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL  = "https://newsapi.org/v2"
	defaultLanguage = "en"
	defaultPageSize = 10
	maxPageSize     = 100
	snippetMaxRunes = 500
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Language       string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

type everythingEnvelope struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
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

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}

	breaker := resilience.NewCircuitBreakerFromConfig("newsapi", cfg.CircuitBreaker,
		resilience.CountFailuresWhen(usecase.IsTransient),
		resilience.LogStateChanges(logger),
	)

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		language:   language,
		logger:     logger,
		breaker:    breaker,
	}
}

// Search queries articles mentioning the player, newest first. Zero results is not an error.
func (c *Client) Search(ctx context.Context, query news.Query) ([]news.Item, error) {
	q := buildQuery(query)
	if q == "" {
		return nil, fmt.Errorf("%w: player name is required", usecase.ErrInvalidInput)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: newsapi key is not configured", usecase.ErrDependencyUnavailable)
	}

	pageSize := query.Limit
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("language", c.language)
	values.Set("sortBy", "publishedAt")
	values.Set("pageSize", strconv.Itoa(pageSize))
	if !query.Since.IsZero() {
		values.Set("from", query.Since.UTC().Format(time.RFC3339))
	}

	envelope, err := resilience.Guard(c.breaker, func() (everythingEnvelope, error) {
		return c.execute(ctx, c.baseURL+"/everything?"+values.Encode())
	})
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
	}
	if err != nil {
		return nil, crerr.Wrapf(err, "search news %q", q)
	}

	out := make([]news.Item, 0, len(envelope.Articles))
	for _, a := range envelope.Articles {
		if strings.TrimSpace(a.URL) == "" || a.Title == "[Removed]" {
			continue
		}
		item := news.Item{
			Source:  a.Source.Name,
			URL:     strings.TrimSpace(a.URL),
			Title:   strings.TrimSpace(a.Title),
			Snippet: snippet(a.Description, a.Content),
		}
		if published, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			item.PublishedAt = published.UTC()
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, fullURL string) (everythingEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return everythingEnvelope{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return everythingEnvelope{}, ctx.Err()
		}
		return everythingEnvelope{}, crerr.Mark(crerr.Wrap(err, "send request"), usecase.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return everythingEnvelope{}, crerr.Mark(crerr.Wrap(err, "read response body"), usecase.ErrTransientNetwork)
	}

	var envelope everythingEnvelope
	decodeErr := sonic.Unmarshal(raw, &envelope)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || envelope.Code == "rateLimited":
		wait, _ := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return everythingEnvelope{}, &usecase.RateLimitError{Provider: "newsapi", RetryAfter: wait}
	case resp.StatusCode >= 500:
		return everythingEnvelope{}, fmt.Errorf("%w: newsapi status=%d", usecase.ErrTransientNetwork, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.Status == "error":
		return everythingEnvelope{}, fmt.Errorf("%w: newsapi status=%d code=%s message=%s", usecase.ErrDependencyUnavailable, resp.StatusCode, envelope.Code, envelope.Message)
	case decodeErr != nil:
		return everythingEnvelope{}, fmt.Errorf("decode newsapi payload: %w", decodeErr)
	}
	return envelope, nil
}

// buildQuery quotes the player name and, when known, ORs in the player plus club.
func buildQuery(q news.Query) string {
	player := strings.TrimSpace(q.PlayerName)
	if player == "" {
		return ""
	}
	quoted := strconv.Quote(player)
	team := strings.TrimSpace(q.TeamName)
	if team == "" {
		return quoted
	}
	return quoted + " AND (" + strconv.Quote(team) + " OR injury OR fitness OR suspended)"
}

func snippet(description, content string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		text = strings.TrimSpace(content)
	}
	// NewsAPI truncates content with a "[+123 chars]" marker
	if i := strings.LastIndex(text, "[+"); i > 0 && strings.HasSuffix(text, "chars]") {
		text = strings.TrimSpace(text[:i])
	}
	runes := []rune(text)
	if len(runes) > snippetMaxRunes {
		text = string(runes[:snippetMaxRunes])
	}
	return text
}
