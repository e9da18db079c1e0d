package fixture

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

// Fixture represents one scheduled match.
type Fixture struct {
	ID        string    `json:"id"`
	League    string    `json:"league"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	KickoffAt time.Time `json:"kickoff_at"`
}

func (f Fixture) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("fixture id is required")
	}
	if strings.TrimSpace(f.League) == "" {
		return fmt.Errorf("fixture league is required")
	}
	if strings.TrimSpace(f.HomeTeam) == "" || strings.TrimSpace(f.AwayTeam) == "" {
		return fmt.Errorf("fixture home and away teams are required")
	}
	if textnorm.Equal(f.HomeTeam, f.AwayTeam) {
		return fmt.Errorf("fixture home team and away team must differ: %q", f.HomeTeam)
	}
	if f.KickoffAt.IsZero() {
		return fmt.Errorf("fixture kickoff is required")
	}

	return nil
}

// Name renders the fixture the way operators address it, e.g. "Arsenal vs Brentford".
func (f Fixture) Name() string {
	return f.HomeTeam + " vs " + f.AwayTeam
}

func (f Fixture) Teams() [2]string {
	return [2]string{f.HomeTeam, f.AwayTeam}
}

// DeriveID builds a stable id for providers that do not supply one.
func DeriveID(league, home, away string, kickoff time.Time) string {
	key := strings.Join([]string{
		textnorm.Name(league),
		textnorm.Name(home),
		textnorm.Name(away),
		kickoff.UTC().Format("2006-01-02"),
	}, "|")
	sum := sha1.Sum([]byte(key))
	return "fx-" + hex.EncodeToString(sum[:8])
}

// SortByKickoff orders fixtures by kickoff ascending. Ties break on league then id so
// index addressing stays deterministic across runs.
func SortByKickoff(items []Fixture) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.KickoffAt.Equal(b.KickoffAt) {
			return a.KickoffAt.Before(b.KickoffAt)
		}
		if a.League != b.League {
			return a.League < b.League
		}
		return a.ID < b.ID
	})
}
