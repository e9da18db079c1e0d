package roster

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a player's membership on a team. Superseded entries are kept inactive, never deleted.
type Entry struct {
	ID             string
	PlayerID       string
	TeamID         string
	Name           string
	NormalizedName string
	Position       string
	ExternalID     string
	Active         bool
	StartDate      time.Time
	EndDate        *time.Time
	LastSyncedAt   time.Time
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("roster entry id is required")
	}
	if strings.TrimSpace(e.PlayerID) == "" {
		return fmt.Errorf("roster entry player id is required")
	}
	if strings.TrimSpace(e.TeamID) == "" {
		return fmt.Errorf("roster entry team id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("roster entry name is required")
	}
	if e.Active && e.EndDate != nil {
		return fmt.Errorf("active roster entry cannot have an end date")
	}

	return nil
}

// ScrapedPlayer is one row of a provider squad page.
type ScrapedPlayer struct {
	Name       string
	Position   string
	ExternalID string
}

// Change is the write set produced from a Partition for one team sync.
type Change struct {
	Insert     []Entry
	Reactivate []Entry
	Deactivate []Entry
	Update     []Entry
}

func (c Change) Empty() bool {
	return len(c.Insert) == 0 && len(c.Reactivate) == 0 && len(c.Deactivate) == 0 && len(c.Update) == 0
}
