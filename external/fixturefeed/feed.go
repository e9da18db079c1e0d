// Package fixturefeed lists upcoming fixtures from an HTTP JSON feed or a local schedule file.
package fixturefeed

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

// record is the wire shape shared by the HTTP feed and schedule files.
type record struct {
	ID        string `json:"id" yaml:"id"`
	League    string `json:"league" yaml:"league"`
	HomeTeam  string `json:"home_team" yaml:"home_team"`
	AwayTeam  string `json:"away_team" yaml:"away_team"`
	KickoffAt string `json:"kickoff_at" yaml:"kickoff_at"`
}

type envelope struct {
	Fixtures []record `json:"fixtures" yaml:"fixtures"`
}

var kickoffLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseKickoff(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported kickoff time %q", v)
}

func (r record) toFixture() (fixture.Fixture, error) {
	kickoff, err := parseKickoff(r.KickoffAt)
	if err != nil {
		return fixture.Fixture{}, err
	}
	fx := fixture.Fixture{
		ID:        strings.TrimSpace(r.ID),
		League:    strings.TrimSpace(r.League),
		HomeTeam:  strings.TrimSpace(r.HomeTeam),
		AwayTeam:  strings.TrimSpace(r.AwayTeam),
		KickoffAt: kickoff,
	}
	if fx.ID == "" {
		fx.ID = fixture.DeriveID(fx.League, fx.HomeTeam, fx.AwayTeam, fx.KickoffAt)
	}
	if err := fx.Validate(); err != nil {
		return fixture.Fixture{}, err
	}
	return fx, nil
}

// assemble converts, filters and orders raw records. Invalid records are returned as skipped
// so callers can log them; duplicate ids keep the first occurrence.
func assemble(records []record, query fixture.Query) ([]fixture.Fixture, []error) {
	league := textnorm.Name(query.League)
	seen := make(map[string]struct{}, len(records))
	out := make([]fixture.Fixture, 0, len(records))
	var skipped []error

	for i, r := range records {
		fx, err := r.toFixture()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("fixture #%d: %w", i, err))
			continue
		}
		if league != "" && textnorm.Name(fx.League) != league {
			continue
		}
		if !query.Window.Contains(fx.KickoffAt) {
			continue
		}
		if _, dup := seen[fx.ID]; dup {
			continue
		}
		seen[fx.ID] = struct{}{}
		out = append(out, fx)
	}

	fixture.SortByKickoff(out)
	return out, skipped
}
