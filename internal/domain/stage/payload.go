package stage

import (
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
)

// PlayerRef snapshots the roster context a stage worked on, so later stages and resumed
// runs do not need the roster again.
type PlayerRef struct {
	PlayerID string `json:"player_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name" validate:"required"`
	Position string `json:"position,omitempty"`
}

type Source struct {
	URL   string `json:"url" validate:"required"`
	Title string `json:"title"`
}

// ResearchOutput is the Research stage payload. An empty findings list is valid.
type ResearchOutput struct {
	Player      PlayerRef `json:"player"`
	Summary     string    `json:"summary" validate:"required"`
	KeyFindings []string  `json:"key_findings"`
	Sources     []Source  `json:"sources" validate:"dive"`
	Confidence  float64   `json:"confidence_score" validate:"gte=0,lte=1"`
	NewsItemIDs []string  `json:"news_item_ids,omitempty"`
	SearchedAt  time.Time `json:"searched_at"`
}

// Availability labels produced by the Analyst stage.
const (
	AvailabilityAvailable = "available"
	AvailabilityDoubtful  = "doubtful"
	AvailabilityOut       = "out"
	AvailabilityUnknown   = "unknown"
)

// AnalystOutput is the Analyst stage payload: a likelihood in [0,1] that the player misses
// the fixture or plays reduced minutes, plus rationale.
type AnalystOutput struct {
	Player       PlayerRef `json:"player"`
	Likelihood   float64   `json:"likelihood" validate:"gte=0,lte=1"`
	Availability string    `json:"availability" validate:"required,oneof=available doubtful out unknown"`
	Rationale    string    `json:"rationale" validate:"required"`
}

// AlertCandidate is one Shark verdict for a player.
type AlertCandidate struct {
	Player      PlayerRef     `json:"player"`
	RiskTag     alert.RiskTag `json:"risk_tag" validate:"required,oneof=no_alert low medium high"`
	Explanation string        `json:"explanation" validate:"required"`
	Likelihood  float64       `json:"likelihood" validate:"gte=0,lte=1"`
}

// Exclusion records a player the Shark stage could not assess.
type Exclusion struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
}

// SharkOutput is the fixture-scoped Shark payload. Verdicts holds every assessed player ranked
// by severity; Alerts is the subset at or above the alert threshold.
type SharkOutput struct {
	Fixture   fixture.Fixture  `json:"fixture"`
	Threshold alert.RiskTag    `json:"threshold"`
	Alerts    []AlertCandidate `json:"alerts" validate:"dive"`
	Verdicts  []AlertCandidate `json:"verdicts" validate:"dive"`
	Assessed  []AnalystOutput  `json:"assessed"`
	Excluded  []Exclusion      `json:"excluded"`
}
