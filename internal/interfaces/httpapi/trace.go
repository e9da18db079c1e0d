package httpapi

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("player-risk-alerts/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// Path wildcards copied onto handler spans, keyed by their attribute name.
var routeAttributes = []struct {
	wildcard string
	key      attribute.Key
}{
	{"runID", "pipeline.run_id"},
	{"fixtureID", "fixture.id"},
}

// startHandlerSpan opens a child of the otelhttp server span. Filtered routes such as
// /healthz carry no parent and get a noop span.
func startHandlerSpan(r *http.Request, handler string) (context.Context, trace.Span) {
	ctx := r.Context()
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, "httpapi.Handler."+handler, trace.WithAttributes(pathAttributes(r)...))
}

func pathAttributes(r *http.Request) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, ra := range routeAttributes {
		if v := r.PathValue(ra.wildcard); v != "" {
			attrs = append(attrs, ra.key.String(v))
		}
	}
	return attrs
}
