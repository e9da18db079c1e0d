package httpapi

import (
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/pipelinerun"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

type alertDTO struct {
	ID           string    `json:"id"`
	PlayerID     string    `json:"playerId"`
	PlayerName   string    `json:"playerName"`
	TeamID       string    `json:"teamId"`
	TeamName     string    `json:"teamName"`
	FixtureID    string    `json:"fixtureId"`
	RunID        string    `json:"runId"`
	RiskTag      string    `json:"riskTag"`
	Explanation  string    `json:"explanation"`
	Likelihood   float64   `json:"likelihood"`
	Active       bool      `json:"active"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type runDTO struct {
	ID         string       `json:"id"`
	Mode       string       `json:"mode"`
	Kind       string       `json:"kind"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
	Completed  int          `json:"completed"`
	Failed     int          `json:"failed"`
	Fixtures   []outcomeDTO `json:"fixtures"`
}

type outcomeDTO struct {
	FixtureID   string    `json:"fixtureId"`
	Fixture     string    `json:"fixture"`
	League      string    `json:"league"`
	KickoffAt   time.Time `json:"kickoffAt"`
	State       string    `json:"state"`
	FailedStage string    `json:"failedStage,omitempty"`
	ReasonCode  string    `json:"reasonCode,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Players     int       `json:"players"`
	Alerts      int       `json:"alerts"`
	Excluded    int       `json:"excluded"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type stageUsageDTO struct {
	Stage           string `json:"stage"`
	Calls           int    `json:"calls"`
	Failed          int    `json:"failed"`
	TokensIn        int    `json:"tokensIn"`
	TokensOut       int    `json:"tokensOut"`
	ReasoningTokens int    `json:"reasoningTokens"`
	LatencyMS       int64  `json:"latencyMs"`
}

type runUsageDTO struct {
	RunID           string          `json:"runId"`
	Calls           int             `json:"calls"`
	Failed          int             `json:"failed"`
	TokensIn        int             `json:"tokensIn"`
	TokensOut       int             `json:"tokensOut"`
	ReasoningTokens int             `json:"reasoningTokens"`
	LatencyMS       int64           `json:"latencyMs"`
	Stages          []stageUsageDTO `json:"stages"`
}

func alertsToDTO(items []alert.Alert) []alertDTO {
	out := make([]alertDTO, 0, len(items))
	for _, a := range items {
		out = append(out, alertDTO{
			ID:           a.ID,
			PlayerID:     a.PlayerID,
			PlayerName:   a.PlayerName,
			TeamID:       a.TeamID,
			TeamName:     a.TeamName,
			FixtureID:    a.FixtureID,
			RunID:        a.RunID,
			RiskTag:      string(a.RiskTag),
			Explanation:  a.Explanation,
			Likelihood:   a.Likelihood,
			Active:       a.Active,
			Acknowledged: a.Acknowledged,
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.UpdatedAt,
		})
	}
	return out
}

func runToDTO(run pipelinerun.Run) runDTO {
	completed, failed := run.Counts()
	out := runDTO{
		ID:         run.ID,
		Mode:       string(run.Mode),
		Kind:       string(run.Kind),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Completed:  completed,
		Failed:     failed,
		Fixtures:   make([]outcomeDTO, 0, len(run.Outcomes)),
	}
	for _, o := range run.Outcomes {
		out.Fixtures = append(out.Fixtures, outcomeDTO{
			FixtureID:   o.Fixture.ID,
			Fixture:     o.Fixture.Name(),
			League:      o.Fixture.League,
			KickoffAt:   o.Fixture.KickoffAt,
			State:       string(o.State),
			FailedStage: string(o.FailedStage),
			ReasonCode:  o.ReasonCode,
			Reason:      o.Reason,
			Players:     o.Players,
			Alerts:      o.Alerts,
			Excluded:    o.Excluded,
			UpdatedAt:   o.UpdatedAt,
		})
	}
	return out
}

func usageToDTO(report usecase.RunUsage) runUsageDTO {
	out := runUsageDTO{
		RunID:           report.RunID,
		Calls:           report.Calls,
		Failed:          report.Failed,
		TokensIn:        report.TokensIn,
		TokensOut:       report.TokensOut,
		ReasoningTokens: report.ReasoningTokens,
		LatencyMS:       report.Latency.Milliseconds(),
		Stages:          make([]stageUsageDTO, 0, len(report.Stages)),
	}
	for _, s := range report.Stages {
		out.Stages = append(out.Stages, stageUsageDTO{
			Stage:           s.Stage,
			Calls:           s.Calls,
			Failed:          s.Failed,
			TokensIn:        s.TokensIn,
			TokensOut:       s.TokensOut,
			ReasoningTokens: s.ReasoningTokens,
			LatencyMS:       s.Latency.Milliseconds(),
		})
	}
	return out
}
