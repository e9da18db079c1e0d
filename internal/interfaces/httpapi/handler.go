package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

const maxLatestFixtures = 50

type Handler struct {
	alertService *usecase.AlertQueryService
	runService   *usecase.RunQueryService
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(alertService *usecase.AlertQueryService, runService *usecase.RunQueryService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		alertService: alertService,
		runService:   runService,
		logger:       logger,
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListRunAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListRunAlerts")
	defer span.End()

	runID := r.PathValue("runID")
	items, err := h.alertService.ListByRun(ctx, runID)
	if err != nil {
		h.logger.WarnContext(ctx, "list run alerts failed", "run_id", runID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, alertsToDTO(items))
}

func (h *Handler) ListFixtureAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListFixtureAlerts")
	defer span.End()

	fixtureID := r.PathValue("fixtureID")
	items, err := h.alertService.ListActiveByFixture(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixture alerts failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, alertsToDTO(items))
}

type latestAlertsQuery struct {
	FixtureIDs []string `validate:"required,min=1,max=50,dive,required"`
}

// LatestAlerts accepts fixture_id repeated or comma separated.
func (h *Handler) LatestAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "LatestAlerts")
	defer span.End()

	query := latestAlertsQuery{FixtureIDs: splitQueryValues(r.URL.Query()["fixture_id"])}
	if err := h.validator.StructCtx(ctx, query); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: fixture_id requires 1 to %d ids: %v", usecase.ErrInvalidInput, maxLatestFixtures, err))
		return
	}

	grouped, err := h.alertService.LatestForFixtures(ctx, query.FixtureIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "latest alerts failed", "fixtures", len(query.FixtureIDs), "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make(map[string][]alertDTO, len(grouped))
	for fixtureID, items := range grouped {
		out[fixtureID] = alertsToDTO(items)
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListRuns")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 200 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be between 1 and 200", usecase.ErrInvalidInput))
			return
		}
		limit = v
	}

	runIDs, err := h.runService.RecentRuns(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list runs failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, runIDs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetRun")
	defer span.End()

	runID := r.PathValue("runID")
	run, err := h.runService.Get(ctx, runID)
	if err != nil {
		h.logger.WarnContext(ctx, "get run failed", "run_id", runID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, runToDTO(run))
}

func (h *Handler) GetRunUsage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetRunUsage")
	defer span.End()

	runID := r.PathValue("runID")
	report, err := h.runService.Usage(ctx, runID)
	if err != nil {
		h.logger.WarnContext(ctx, "get run usage failed", "run_id", runID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, usageToDTO(report))
}

func splitQueryValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
