package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

// RegistrationState is the roster lifecycle of a team.
type RegistrationState string

const (
	StateUnregistered RegistrationState = "unregistered"
	StateStale        RegistrationState = "registered_stale"
	StateFresh        RegistrationState = "registered_fresh"
)

// Team is a club within a league. ExternalID stays empty until a provider lookup succeeds.
type Team struct {
	ID           string
	Name         string
	League       string
	Country      string
	ExternalID   string
	ExternalSlug string
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	if strings.TrimSpace(t.League) == "" {
		return fmt.Errorf("team league is required")
	}
	if t.ExternalSlug != "" && t.ExternalID == "" {
		return fmt.Errorf("team external slug requires an external id")
	}

	return nil
}

func (t Team) NormalizedName() string {
	return textnorm.Name(t.Name)
}

// Key identifies a team by league and normalized name.
func Key(league, name string) string {
	return textnorm.Name(league) + "|" + textnorm.Name(name)
}

func (t Team) Key() string {
	return Key(t.League, t.Name)
}

func (t Team) Registered() bool {
	return strings.TrimSpace(t.ExternalID) != ""
}

// State reports where t sits in the roster lifecycle at now.
func (t Team) State(now time.Time, maxAge time.Duration) RegistrationState {
	if !t.Registered() {
		return StateUnregistered
	}
	if t.LastSyncedAt == nil || now.Sub(*t.LastSyncedAt) >= maxAge {
		return StateStale
	}
	return StateFresh
}
