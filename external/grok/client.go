// Package grok calls the xAI chat completions endpoint (OpenAI compatible).
package grok

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/valyala/fasthttp"
)

const (
	defaultBaseURL     = "https://api.x.ai/v1"
	defaultModel       = "grok-4-1-fast-reasoning"
	defaultMaxTokens   = 2000
	defaultTemperature = 0.8
	completionsPath    = "/chat/completions"
)

type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Logger      *logging.Logger
	// HTTPClient overrides the pooled fasthttp client, mainly for tests.
	HTTPClient *fasthttp.Client
}

type Client struct {
	http        *fasthttp.Client
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *logging.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchParameters struct {
	Mode string `json:"mode"`
}

type completionRequest struct {
	Model            string            `json:"model"`
	Messages         []message         `json:"messages"`
	MaxTokens        int               `json:"max_tokens,omitempty"`
	Temperature      float64           `json:"temperature"`
	SearchParameters *searchParameters `json:"search_parameters,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens            int `json:"prompt_tokens"`
		CompletionTokens        int `json:"completion_tokens"`
		TotalTokens             int `json:"total_tokens"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "player-risk-alerts",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return &Client{
		http:        httpClient,
		endpoint:    baseURL + completionsPath,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Complete sends one chat completion. Failures are classified as *usecase.RateLimitError,
// usecase.ErrReasoningService (retryable) or usecase.ErrDependencyUnavailable (not retryable).
func (c *Client) Complete(ctx context.Context, req usecase.ReasoningRequest) (usecase.ReasoningResponse, error) {
	if c.apiKey == "" {
		return usecase.ReasoningResponse{}, fmt.Errorf("%w: reasoning api key is not configured", usecase.ErrDependencyUnavailable)
	}
	if strings.TrimSpace(req.User) == "" {
		return usecase.ReasoningResponse{}, fmt.Errorf("%w: reasoning prompt is empty", usecase.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return usecase.ReasoningResponse{}, err
	}

	payload := completionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload.Temperature = req.Temperature
	}
	if strings.TrimSpace(req.System) != "" {
		payload.Messages = append(payload.Messages, message{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, message{Role: "user", Content: req.User})
	if req.WebSearch {
		payload.SearchParameters = &searchParameters{Mode: "auto"}
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return usecase.ReasoningResponse{}, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(c.endpoint)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	start := time.Now()
	if err := c.http.DoDeadline(httpReq, httpResp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return usecase.ReasoningResponse{}, ctxErr
		}
		if errors.Is(err, fasthttp.ErrTimeout) {
			return usecase.ReasoningResponse{}, crerr.Mark(crerr.Wrap(err, "reasoning request timed out"), usecase.ErrTransientNetwork)
		}
		return usecase.ReasoningResponse{}, crerr.Mark(crerr.Wrap(err, "send reasoning request"), usecase.ErrTransientNetwork)
	}

	status := httpResp.StatusCode()
	raw := append([]byte(nil), httpResp.Body()...)
	if err := classifyStatus(status, raw, string(httpResp.Header.Peek("Retry-After"))); err != nil {
		c.logger.WarnContext(ctx, "reasoning request failed",
			"stage", string(req.Stage),
			"status", status,
			"latency", time.Since(start),
			"error", err,
		)
		return usecase.ReasoningResponse{}, err
	}

	var decoded completionResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return usecase.ReasoningResponse{}, fmt.Errorf("%w: decode completion response: %v", usecase.ErrReasoningService, err)
	}
	if len(decoded.Choices) == 0 {
		return usecase.ReasoningResponse{}, fmt.Errorf("%w: completion response has no choices", usecase.ErrReasoningService)
	}

	model := decoded.Model
	if model == "" {
		model = c.model
	}
	return usecase.ReasoningResponse{
		Content: decoded.Choices[0].Message.Content,
		Model:   model,
		Usage: usecase.ReasoningUsage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			ReasoningTokens:  decoded.Usage.CompletionTokensDetails.ReasoningTokens,
		},
	}, nil
}

func classifyStatus(status int, body []byte, retryAfter string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == fasthttp.StatusTooManyRequests:
		wait, _ := retry.ParseRetryAfter(retryAfter, time.Now())
		return &usecase.RateLimitError{Provider: "grok", RetryAfter: wait}
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return fmt.Errorf("%w: reasoning service rejected credentials (status=%d)", usecase.ErrDependencyUnavailable, status)
	case status == fasthttp.StatusBadRequest || status == fasthttp.StatusUnprocessableEntity || status == fasthttp.StatusNotFound:
		return fmt.Errorf("%w: reasoning request rejected (status=%d): %s", usecase.ErrInvalidInput, status, abbreviate(body))
	default:
		return fmt.Errorf("%w: status=%d body=%s", usecase.ErrReasoningService, status, abbreviate(body))
	}
}

func abbreviate(body []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
