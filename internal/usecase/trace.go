package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const runIDAttribute = attribute.Key("pipeline.run_id")

var usecaseTracer = otel.Tracer("player-risk-alerts/internal/usecase")
var usecaseNoopSpan = trace.SpanFromContext(context.Background())

// Batch entry points invoked from the CLI have no inbound request span, so they may start a
// trace of their own. Everything else only traces beneath an existing parent.
var rootSpanNames = map[string]struct{}{
	"usecase.PipelineOrchestrator.Run":         {},
	"usecase.RosterPreparationService.Prepare": {},
}

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, usecaseNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() && !mayStartTrace(name) {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(spanAttributes(ctx)...))
}

func mayStartTrace(name string) bool {
	_, ok := rootSpanNames[name]
	return ok
}

func spanAttributes(ctx context.Context) []attribute.KeyValue {
	if runID := runIDFromContext(ctx); runID != "" {
		return []attribute.KeyValue{runIDAttribute.String(runID)}
	}
	return nil
}

func tagRun(span trace.Span, runID string) {
	if runID != "" {
		span.SetAttributes(runIDAttribute.String(runID))
	}
}
