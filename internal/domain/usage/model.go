package usage

import (
	"context"
	"sort"
	"time"
)

// Stages recorded outside the agent chain.
const (
	StageTeamLookup  = "team_lookup"
	StageRosterFetch = "roster_fetch"
	StageNewsSearch  = "news_search"
)

// Record is one external call's consumption.
type Record struct {
	RunID           string        `json:"run_id"`
	Stage           string        `json:"stage"`
	FixtureID       string        `json:"fixture_id,omitempty"`
	PlayerID        string        `json:"player_id,omitempty"`
	Model           string        `json:"model,omitempty"`
	TokensIn        int           `json:"tokens_in"`
	TokensOut       int           `json:"tokens_out"`
	ReasoningTokens int           `json:"reasoning_tokens,omitempty"`
	Latency         time.Duration `json:"latency_ns"`
	Failed          bool          `json:"failed,omitempty"`
	RecordedAt      time.Time     `json:"recorded_at"`
}

// Ledger is the append-only, run-indexed store of usage records.
type Ledger interface {
	Append(ctx context.Context, records []Record) error
	ListByRun(ctx context.Context, runID string) ([]Record, error)
	ListRuns(ctx context.Context, limit int) ([]string, error)
}

// Summary aggregates a run's records for one stage.
type Summary struct {
	Stage           string        `json:"stage"`
	Calls           int           `json:"calls"`
	Failed          int           `json:"failed"`
	TokensIn        int           `json:"tokens_in"`
	TokensOut       int           `json:"tokens_out"`
	ReasoningTokens int           `json:"reasoning_tokens"`
	Latency         time.Duration `json:"latency_ns"`
}

func (s Summary) TotalTokens() int {
	return s.TokensIn + s.TokensOut
}

// Summarize groups records by stage, sorted by stage name.
func Summarize(records []Record) []Summary {
	byStage := make(map[string]*Summary)
	for _, r := range records {
		s, ok := byStage[r.Stage]
		if !ok {
			s = &Summary{Stage: r.Stage}
			byStage[r.Stage] = s
		}
		s.Calls++
		if r.Failed {
			s.Failed++
		}
		s.TokensIn += r.TokensIn
		s.TokensOut += r.TokensOut
		s.ReasoningTokens += r.ReasoningTokens
		s.Latency += r.Latency
	}

	out := make([]Summary, 0, len(byStage))
	for _, s := range byStage {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}
