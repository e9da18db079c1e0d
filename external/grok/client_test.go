package grok

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

const completionOK = `{
  "id": "cmpl-1",
  "model": "grok-4-1-fast-reasoning",
  "choices": [{"message": {"role": "assistant", "content": "{\"likelihood\":0.2}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 321, "completion_tokens": 45, "total_tokens": 366, "completion_tokens_details": {"reasoning_tokens": 120}}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "xai-test",
		Timeout: 2 * time.Second,
		Logger:  logging.NewNop(),
	})
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()

	var gotAuth, gotPath string
	var gotBody completionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionOK))
	})

	resp, err := client.Complete(context.Background(), usecase.ReasoningRequest{
		Stage:     stage.Research,
		System:    "You are a football injury researcher.",
		User:      "Research Bukayo Saka.",
		WebSearch: true,
		MaxTokens: 800,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if gotAuth != "Bearer xai-test" || gotPath != "/chat/completions" {
		t.Fatalf("unexpected request auth=%q path=%q", gotAuth, gotPath)
	}
	if gotBody.Model != "grok-4-1-fast-reasoning" || gotBody.MaxTokens != 800 || gotBody.Temperature != 0.8 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Content != "Research Bukayo Saka." {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
	if gotBody.SearchParameters == nil || gotBody.SearchParameters.Mode != "auto" {
		t.Fatalf("expected web search parameters, got %+v", gotBody.SearchParameters)
	}

	if resp.Content != `{"likelihood":0.2}` {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 321 || resp.Usage.CompletionTokens != 45 || resp.Usage.ReasoningTokens != 120 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestClient_CompleteFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		header string
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, header: "1.5", want: usecase.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, body: "upstream", want: usecase.ErrReasoningService},
		{name: "bad credentials", status: http.StatusUnauthorized, want: usecase.ErrDependencyUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"message":"bad model"}}`, want: usecase.ErrInvalidInput},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: usecase.ErrReasoningService},
		{name: "garbage body", status: http.StatusOK, body: `not json`, want: usecase.ErrReasoningService},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if tc.header != "" {
					w.Header().Set("Retry-After", tc.header)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Complete(context.Background(), usecase.ReasoningRequest{Stage: stage.Analyst, User: "assess"})
			if !crerr.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.status == http.StatusTooManyRequests {
				if hint, ok := usecase.RetryAfterHint(err); !ok || hint != 1500*time.Millisecond {
					t.Fatalf("expected 1.5s retry hint, got %s %v", hint, ok)
				}
			}
		})
	}
}

func TestClient_CompleteTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(completionOK))
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "xai-test", Timeout: 50 * time.Millisecond, Logger: logging.NewNop()})
	_, err := client.Complete(context.Background(), usecase.ReasoningRequest{Stage: stage.Shark, User: "score"})
	if !usecase.IsTransient(err) {
		t.Fatalf("expected transient error on timeout, got %v", err)
	}
}

func TestClient_CompleteRequiresKeyAndPrompt(t *testing.T) {
	t.Parallel()

	noKey := NewClient(ClientConfig{Logger: logging.NewNop()})
	if _, err := noKey.Complete(context.Background(), usecase.ReasoningRequest{User: "x"}); !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected unavailable without key, got %v", err)
	}

	client := NewClient(ClientConfig{APIKey: "k", Logger: logging.NewNop()})
	if _, err := client.Complete(context.Background(), usecase.ReasoningRequest{User: " "}); !crerr.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty prompt, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Complete(ctx, usecase.ReasoningRequest{User: "x"}); !crerr.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
