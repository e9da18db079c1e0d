package alert

import (
	"fmt"
	"strings"
	"time"
)

// RiskTag is the closed alert taxonomy, ordered by severity.
type RiskTag string

const (
	RiskNone   RiskTag = "no_alert"
	RiskLow    RiskTag = "low"
	RiskMedium RiskTag = "medium"
	RiskHigh   RiskTag = "high"
)

func ParseRiskTag(v string) (RiskTag, error) {
	switch tag := RiskTag(strings.ToLower(strings.TrimSpace(v))); tag {
	case RiskNone, RiskLow, RiskMedium, RiskHigh:
		return tag, nil
	default:
		return "", fmt.Errorf("unknown risk tag %q", v)
	}
}

// Rank orders tags by severity; unknown tags rank below no_alert.
func (t RiskTag) Rank() int {
	switch t {
	case RiskNone:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return -1
	}
}

func (t RiskTag) AtLeast(threshold RiskTag) bool {
	return t.Rank() >= threshold.Rank()
}

// Alert is a final high-risk determination, unique per (player, fixture, run).
type Alert struct {
	ID           string
	PlayerID     string
	PlayerName   string
	TeamID       string
	TeamName     string
	FixtureID    string
	RunID        string
	RiskTag      RiskTag
	Explanation  string
	Likelihood   float64
	Active       bool
	Acknowledged bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Alert) Validate() error {
	if strings.TrimSpace(a.PlayerID) == "" {
		return fmt.Errorf("alert player id is required")
	}
	if strings.TrimSpace(a.FixtureID) == "" {
		return fmt.Errorf("alert fixture id is required")
	}
	if strings.TrimSpace(a.RunID) == "" {
		return fmt.Errorf("alert run id is required")
	}
	if _, err := ParseRiskTag(string(a.RiskTag)); err != nil {
		return err
	}
	if strings.TrimSpace(a.Explanation) == "" {
		return fmt.Errorf("alert explanation is required")
	}

	return nil
}

// Key is the idempotency key of an alert.
type Key struct {
	PlayerID  string
	FixtureID string
	RunID     string
}

func (a Alert) Key() Key {
	return Key{PlayerID: a.PlayerID, FixtureID: a.FixtureID, RunID: a.RunID}
}
