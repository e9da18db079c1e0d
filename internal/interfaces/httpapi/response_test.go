package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWriteSuccess_DataOnly(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if len(body.Data) == 0 || body.Error != nil {
		t.Fatalf("expected data without error, got %s", rec.Body.String())
	}
}

func TestWriteError_ReasonCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
		wantReason string
	}{
		{"invalid input", fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput), http.StatusBadRequest, "INVALID_ARGUMENT", usecase.ReasonInvalidInput},
		{"missing run", fmt.Errorf("%w: run 2026_01_01_000000", usecase.ErrNotFound), http.StatusNotFound, "NOT_FOUND", usecase.ReasonDataNotFound},
		{"fixture source", fmt.Errorf("%w: schedule feed down", usecase.ErrSourceUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE", usecase.ReasonSourceUnavailable},
		{"deadline", fmt.Errorf("read alerts: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "DEADLINE_EXCEEDED", usecase.ReasonTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			writeError(context.Background(), rec, tt.err)

			body := decodeEnvelope(t, rec)
			if rec.Code != tt.wantCode || body.Error == nil {
				t.Fatalf("expected %d with error body, got %d %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if body.Error.Status != tt.wantStatus || body.Error.Reason != tt.wantReason {
				t.Fatalf("unexpected error body: %+v", body.Error)
			}
		})
	}
}

func TestWriteError_RetryAfter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, &usecase.RateLimitError{Provider: "warehouse", RetryAfter: 30 * time.Second})

	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected 429 with Retry-After 30, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestWriteError_UnclassifiedIsInternal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("pq: connection reset by peer"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pq:") {
		t.Fatalf("storage error leaked to the response: %s", rec.Body.String())
	}
}
