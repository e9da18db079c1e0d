package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/id"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

type CommitInput struct {
	RunID   string
	Shark   stage.SharkOutput
	DryRun  bool
	PushAll bool
}

type CommitResult struct {
	FixtureID     string
	Alerts        []alert.Alert
	Upserted      int
	Deactivated   int
	WarehouseRows int
	DryRun        bool
}

// AlertSink commits a fixture's alerts to the transactional store, then forwards denormalized
// rows to the warehouse. Both writes are idempotent per (player, fixture, run).
type AlertSink struct {
	alerts    alert.Repository
	warehouse alert.Warehouse
	ids       id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewAlertSink(alerts alert.Repository, warehouse alert.Warehouse, ids id.Generator, logger *logging.Logger) *AlertSink {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &AlertSink{
		alerts:    alerts,
		warehouse: warehouse,
		ids:       ids,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AlertSink) Commit(ctx context.Context, input CommitInput) (CommitResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AlertSink.Commit")
	defer span.End()

	fx := input.Shark.Fixture
	if strings.TrimSpace(input.RunID) == "" || strings.TrimSpace(fx.ID) == "" {
		return CommitResult{}, fmt.Errorf("%w: run id and fixture are required", ErrInvalidInput)
	}

	now := s.now().UTC()
	items := make([]alert.Alert, 0, len(input.Shark.Alerts))
	for _, c := range input.Shark.Alerts {
		alertID, err := s.ids.NewID()
		if err != nil {
			return CommitResult{}, err
		}
		item := alert.Alert{
			ID:          alertID,
			PlayerID:    c.Player.PlayerID,
			PlayerName:  c.Player.Name,
			TeamID:      c.Player.TeamID,
			TeamName:    c.Player.TeamName,
			FixtureID:   fx.ID,
			RunID:       input.RunID,
			RiskTag:     c.RiskTag,
			Explanation: c.Explanation,
			Likelihood:  c.Likelihood,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := item.Validate(); err != nil {
			return CommitResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		items = append(items, item)
	}

	result := CommitResult{FixtureID: fx.ID, Alerts: items, DryRun: input.DryRun}
	rows := warehouseRows(input, now)
	if input.DryRun {
		result.WarehouseRows = len(rows)
		s.logger.InfoContext(ctx, "dry run, alerts not committed", "fixture_id", fx.ID, "alerts", len(items))
		return result, nil
	}

	stats, err := s.alerts.CommitFixture(ctx, input.RunID, fx.ID, items)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "commit alerts fixture_id=%s", fx.ID), ErrPersistence)
	}
	result.Upserted = stats.Upserted
	result.Deactivated = stats.Deactivated

	if s.warehouse != nil && len(rows) > 0 {
		pushed, err := s.warehouse.Push(ctx, rows)
		if err != nil {
			return result, crerr.Mark(crerr.Wrapf(err, "push warehouse rows fixture_id=%s", fx.ID), ErrPersistence)
		}
		result.WarehouseRows = pushed
	}

	s.logger.InfoContext(ctx, "alerts committed",
		"fixture_id", fx.ID,
		"upserted", result.Upserted,
		"deactivated", result.Deactivated,
		"warehouse_rows", result.WarehouseRows,
	)
	return result, nil
}

// warehouseRows builds one row per alert, or with PushAll one row per assessed player, using
// no_alert for players the Shark stage did not flag.
func warehouseRows(input CommitInput, pushedAt time.Time) []alert.WarehouseRow {
	fx := input.Shark.Fixture
	row := func(p stage.PlayerRef, tag alert.RiskTag, explanation string, likelihood float64) alert.WarehouseRow {
		return alert.WarehouseRow{
			RunID:       input.RunID,
			FixtureID:   fx.ID,
			FixtureName: fx.Name(),
			League:      fx.League,
			KickoffAt:   fx.KickoffAt,
			PlayerID:    p.PlayerID,
			PlayerName:  p.Name,
			TeamName:    p.TeamName,
			Position:    p.Position,
			RiskTag:     tag,
			Explanation: explanation,
			Likelihood:  likelihood,
			PushedAt:    pushedAt,
		}
	}

	if !input.PushAll {
		out := make([]alert.WarehouseRow, 0, len(input.Shark.Alerts))
		for _, c := range input.Shark.Alerts {
			out = append(out, row(c.Player, c.RiskTag, c.Explanation, c.Likelihood))
		}
		return out
	}

	verdicts := make(map[string]stage.AlertCandidate, len(input.Shark.Verdicts))
	for _, v := range input.Shark.Verdicts {
		verdicts[v.Player.PlayerID] = v
	}
	for _, a := range input.Shark.Alerts {
		verdicts[a.Player.PlayerID] = a
	}

	out := make([]alert.WarehouseRow, 0, len(input.Shark.Assessed))
	for _, a := range input.Shark.Assessed {
		if v, ok := verdicts[a.Player.PlayerID]; ok {
			out = append(out, row(a.Player, v.RiskTag, v.Explanation, v.Likelihood))
			continue
		}
		out = append(out, row(a.Player, alert.RiskNone, a.Rationale, a.Likelihood))
	}
	return out
}
