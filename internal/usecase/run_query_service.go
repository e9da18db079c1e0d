package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
)

const defaultRecentRuns = 20

// RunUsage is the per-stage consumption of one run read back from the ledger.
type RunUsage struct {
	RunID           string          `json:"run_id"`
	Stages          []usage.Summary `json:"stages"`
	Calls           int             `json:"calls"`
	Failed          int             `json:"failed"`
	TokensIn        int             `json:"tokens_in"`
	TokensOut       int             `json:"tokens_out"`
	ReasoningTokens int             `json:"reasoning_tokens"`
	Latency         time.Duration   `json:"latency_ns"`
}

// RunQueryService serves run records and their usage to operators.
type RunQueryService struct {
	runs   pipelinerun.Repository
	ledger usage.Ledger
}

func NewRunQueryService(runs pipelinerun.Repository, ledger usage.Ledger) *RunQueryService {
	return &RunQueryService{runs: runs, ledger: ledger}
}

func (s *RunQueryService) Get(ctx context.Context, runID string) (pipelinerun.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunQueryService.Get")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return pipelinerun.Run{}, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	run, found, err := s.runs.Get(ctx, runID)
	if err != nil {
		return pipelinerun.Run{}, crerr.Mark(crerr.Wrapf(err, "get run %s", runID), ErrPersistence)
	}
	if !found {
		return pipelinerun.Run{}, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return run, nil
}

// Usage summarizes the ledger records of runID. A run without records yields empty totals.
func (s *RunQueryService) Usage(ctx context.Context, runID string) (RunUsage, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunQueryService.Usage")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return RunUsage{}, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	if s.ledger == nil {
		return RunUsage{}, fmt.Errorf("%w: usage ledger is not configured", ErrDependencyUnavailable)
	}
	records, err := s.ledger.ListByRun(ctx, runID)
	if err != nil {
		return RunUsage{}, crerr.Mark(crerr.Wrapf(err, "list usage run_id=%s", runID), ErrDependencyUnavailable)
	}

	out := RunUsage{RunID: runID, Stages: usage.Summarize(records)}
	for _, st := range out.Stages {
		out.Calls += st.Calls
		out.Failed += st.Failed
		out.TokensIn += st.TokensIn
		out.TokensOut += st.TokensOut
		out.ReasoningTokens += st.ReasoningTokens
		out.Latency += st.Latency
	}
	return out, nil
}

// RecentRuns lists run ids that recorded usage, newest first.
func (s *RunQueryService) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RunQueryService.RecentRuns")
	defer span.End()

	if s.ledger == nil {
		return nil, fmt.Errorf("%w: usage ledger is not configured", ErrDependencyUnavailable)
	}
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	runs, err := s.ledger.ListRuns(ctx, limit)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "list usage runs"), ErrDependencyUnavailable)
	}
	return runs, nil
}
