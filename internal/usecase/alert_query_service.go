package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
)

type AlertQueryService struct {
	alerts alert.Repository
}

func NewAlertQueryService(alerts alert.Repository) *AlertQueryService {
	return &AlertQueryService{alerts: alerts}
}

func (s *AlertQueryService) ListByRun(ctx context.Context, runID string) ([]alert.Alert, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertQueryService.ListByRun")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	items, err := s.alerts.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list alerts run_id=%s: %w", runID, err)
	}
	return items, nil
}

func (s *AlertQueryService) ListActiveByFixture(ctx context.Context, fixtureID string) ([]alert.Alert, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertQueryService.ListActiveByFixture")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return nil, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	items, err := s.alerts.ListActiveByFixture(ctx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("list active alerts fixture_id=%s: %w", fixtureID, err)
	}
	return items, nil
}

// LatestForFixtures groups the active alerts of each fixture. Fixtures without alerts map to
// an empty slice.
func (s *AlertQueryService) LatestForFixtures(ctx context.Context, fixtureIDs []string) (map[string][]alert.Alert, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertQueryService.LatestForFixtures")
	defer span.End()

	ids := make([]string, 0, len(fixtureIDs))
	out := make(map[string][]alert.Alert, len(fixtureIDs))
	for _, v := range fixtureIDs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, seen := out[v]; seen {
			continue
		}
		out[v] = []alert.Alert{}
		ids = append(ids, v)
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := s.alerts.ListActiveByFixtures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list active alerts for %d fixtures: %w", len(ids), err)
	}
	for _, item := range items {
		out[item.FixtureID] = append(out[item.FixtureID], item)
	}
	return out, nil
}

func (s *AlertQueryService) Acknowledge(ctx context.Context, alertID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertQueryService.Acknowledge")
	defer span.End()

	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return fmt.Errorf("%w: alert id is required", ErrInvalidInput)
	}
	ok, err := s.alerts.Acknowledge(ctx, alertID)
	if err != nil {
		return fmt.Errorf("acknowledge alert id=%s: %w", alertID, err)
	}
	if !ok {
		return fmt.Errorf("%w: alert id=%s", ErrNotFound, alertID)
	}
	return nil
}
