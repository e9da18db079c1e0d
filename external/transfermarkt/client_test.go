package transfermarkt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/resilience"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		HTTPClient:     server.Client(),
		BaseURL:        server.URL,
		Timeout:        2 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestClient_FetchSquad(t *testing.T) {
	t.Parallel()

	var gotPath, gotAgent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(squadPage))
	}, resilience.CircuitBreakerConfig{})

	players, err := client.FetchSquad(context.Background(), "11", "fc-arsenal")
	if err != nil {
		t.Fatalf("fetch squad: %v", err)
	}
	if gotPath != "/fc-arsenal/kader/verein/11" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAgent == "" {
		t.Fatalf("expected a browser user agent")
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
}

func TestClient_FetchSquad_ParseFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}, resilience.CircuitBreakerConfig{})

	_, err := client.FetchSquad(context.Background(), "11", "fc-arsenal")
	if !crerr.Is(err, usecase.ErrScrapeParse) {
		t.Fatalf("expected scrape parse error, got %v", err)
	}
}

func TestClient_FetchSquad_InvalidInput(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})
	if _, err := client.FetchSquad(context.Background(), "abc", "fc-arsenal"); !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for non numeric id, got %v", err)
	}
	if _, err := client.FetchSquad(context.Background(), "11", " "); !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty slug, got %v", err)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		header string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, want: usecase.ErrDataNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, header: "3", want: usecase.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, want: usecase.ErrTransientNetwork},
		{name: "blocked", status: http.StatusForbidden, want: usecase.ErrTransientNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if tc.header != "" {
					w.Header().Set("Retry-After", tc.header)
				}
				w.WriteHeader(tc.status)
			}, resilience.CircuitBreakerConfig{})

			_, err := client.SearchTeams(context.Background(), "Arsenal")
			if !crerr.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.status == http.StatusTooManyRequests {
				if hint, ok := usecase.RetryAfterHint(err); !ok || hint != 3*time.Second {
					t.Fatalf("expected retry after hint of 3s, got %s %v", hint, ok)
				}
			}
		})
	}
}

func TestClient_RateLimitHTTPDate(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", time.Now().Add(2*time.Minute).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	}, resilience.CircuitBreakerConfig{})

	_, err := client.SearchTeams(context.Background(), "Arsenal")
	hint, ok := usecase.RetryAfterHint(err)
	if !ok || hint <= time.Minute || hint > 2*time.Minute {
		t.Fatalf("expected a hint of about 2m from the HTTP-date header, got %s %v (%v)", hint, ok, err)
	}
}

func TestClient_SearchTeams(t *testing.T) {
	t.Parallel()

	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(searchPage))
	}, resilience.CircuitBreakerConfig{})

	candidates, err := client.SearchTeams(context.Background(), "Arsenal")
	if err != nil {
		t.Fatalf("search teams: %v", err)
	}
	if gotQuery != "Arsenal" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
}

func TestClient_SearchTeamsCachesByName(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(searchPage))
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Logger:     logging.NewNop(),
		SearchTTL:  time.Minute,
	})
	for _, name := range []string{"Arsenal", "arsenal", " ARSENAL "} {
		candidates, err := client.SearchTeams(context.Background(), name)
		if err != nil {
			t.Fatalf("search %q: %v", name, err)
		}
		if len(candidates) != 2 {
			t.Fatalf("expected 2 candidates for %q, got %d", name, len(candidates))
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream search, got %d", got)
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := client.FetchSquad(context.Background(), "11", "fc-arsenal"); !crerr.Is(err, usecase.ErrTransientNetwork) {
			t.Fatalf("attempt %d: expected transient error, got %v", i, err)
		}
	}

	_, err := client.FetchSquad(context.Background(), "11", "fc-arsenal")
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open breaker to reject, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls.Load())
	}
}
