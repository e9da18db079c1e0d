package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Result is the append-only output of one stage for one (fixture, player) pair.
// Shark results are fixture-scoped and leave PlayerID empty.
type Result struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	FixtureID string          `json:"fixture_id"`
	PlayerID  string          `json:"player_id,omitempty"`
	Stage     Stage           `json:"stage"`
	Status    Status          `json:"status"`
	InputRef  string          `json:"input_ref,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Attempts  int             `json:"attempts"`
	TokensIn  int             `json:"tokens_in"`
	TokensOut int             `json:"tokens_out"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r Result) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("stage result id is required")
	}
	if strings.TrimSpace(r.RunID) == "" {
		return fmt.Errorf("stage result run id is required")
	}
	if strings.TrimSpace(r.FixtureID) == "" {
		return fmt.Errorf("stage result fixture id is required")
	}
	if _, err := Parse(string(r.Stage)); err != nil {
		return err
	}
	if r.Stage.PlayerScoped() && strings.TrimSpace(r.PlayerID) == "" {
		return fmt.Errorf("%s result requires a player id", r.Stage)
	}
	if r.Status != StatusCompleted && r.Status != StatusFailed {
		return fmt.Errorf("invalid stage result status %q", r.Status)
	}

	return nil
}

func (r Result) Completed() bool {
	return r.Status == StatusCompleted
}

type Filter struct {
	FixtureID string
	Stage     Stage
}

// Repository is append-only; later results for the same key supersede earlier ones on read.
type Repository interface {
	Append(ctx context.Context, result Result) error
	ListByRun(ctx context.Context, runID string, filter Filter) ([]Result, error)
}

// Latest keeps the newest result per (fixture, player, stage), preserving the input order otherwise.
func Latest(results []Result) []Result {
	type key struct {
		fixture, player string
		stage           Stage
	}
	idx := make(map[key]int, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		k := key{r.FixtureID, r.PlayerID, r.Stage}
		if i, ok := idx[k]; ok {
			if !r.CreatedAt.Before(out[i].CreatedAt) {
				out[i] = r
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
