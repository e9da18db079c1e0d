package usecase

import (
	"context"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

// WithRunID tags ctx so usage records and log lines made beneath it are attributed to runID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return logging.WithRunID(ctx, runID)
}

func runIDFromContext(ctx context.Context) string {
	return logging.RunIDFromContext(ctx)
}
