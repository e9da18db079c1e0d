package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestPathAttributes(t *testing.T) {
	t.Parallel()

	var got []attribute.KeyValue
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/runs/{runID}/alerts", func(_ http.ResponseWriter, r *http.Request) {
		got = pathAttributes(r)
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/runs/2026_10_19_101500/alerts", nil))

	if len(got) != 1 || got[0].Key != "pipeline.run_id" || got[0].Value.AsString() != "2026_10_19_101500" {
		t.Fatalf("unexpected attributes: %v", got)
	}
}

func TestStartHandlerSpan_NoParent(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	ctx, span := startHandlerSpan(req, "Healthz")
	defer span.End()

	if ctx != req.Context() || span.SpanContext().IsValid() {
		t.Fatalf("expected a noop span without a server span in context")
	}
}
