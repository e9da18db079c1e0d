package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	otellog "go.opentelemetry.io/otel/log"
)

func TestShouldShipLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level logging.Level
		msg   string
		args  []any
		want  bool
	}{
		{"health probe", logging.LevelInfo, "http request", []any{"method", "GET", "path", "/healthz"}, false},
		{"alert read", logging.LevelInfo, "http request", []any{"path", "/v1/runs/2026_10_19_101500/alerts"}, true},
		{"per player debug", logging.LevelDebug, "news articles fetched", []any{"player", "Bukayo Saka"}, false},
		{"same event at warn", logging.LevelWarn, "news articles fetched", nil, true},
		{"stage failure", logging.LevelWarn, "stage failed", []any{"path", "/healthz"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldShipLog(tt.level, tt.msg, tt.args); got != tt.want {
				t.Fatalf("shouldShipLog(%q)=%v want=%v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestBuildOTelLogAttributes(t *testing.T) {
	t.Parallel()

	attrs := buildOTelLogAttributes([]any{"fixture_id", "fx-3f1c0a9b", "attempt", 2, "risk_tag", alert.RiskHigh, "payload"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "fixture_id" || attrs[0].Value.AsString() != "fx-3f1c0a9b" {
		t.Fatalf("unexpected fixture_id attribute: %v", attrs[0])
	}
	if attrs[1].Key != "attempt" || attrs[1].Value.AsInt64() != 2 {
		t.Fatalf("unexpected attempt attribute: %v", attrs[1])
	}
	if attrs[2].Value.Kind() != otellog.KindString || attrs[2].Value.AsString() != "high" {
		t.Fatalf("expected risk tag as string, got %v", attrs[2])
	}
	if attrs[3].Key != "payload" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected payload attribute: %v", attrs[3])
	}
}

func TestToOTelLogValue(t *testing.T) {
	t.Parallel()

	if v := toOTelLogValue(1500*time.Millisecond); v.AsString() != "1.5s" {
		t.Fatalf("unexpected duration value: %v", v)
	}
	if v := toOTelLogValue(errors.New("rate limited")); v.AsString() != "rate limited" {
		t.Fatalf("unexpected error value: %v", v)
	}
	v := toOTelLogValue(map[string]any{"tokens_in": 1200, "failed": true})
	if v.Kind() != otellog.KindMap || len(v.AsMap()) != 2 {
		t.Fatalf("expected 2-entry map value, got %v", v)
	}
	if v := toOTelLogValue([]string{"research", "shark"}); v.Kind() != otellog.KindSlice || len(v.AsSlice()) != 2 {
		t.Fatalf("expected 2-entry slice value, got %v", v)
	}
}
