package memory

import (
	"context"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

// FixtureSource serves a fixed fixture list.
type FixtureSource struct {
	fixtures []fixture.Fixture
	err      error
}

func NewFixtureSource(fixtures ...fixture.Fixture) *FixtureSource {
	return &FixtureSource{fixtures: append([]fixture.Fixture(nil), fixtures...)}
}

// NewFailingFixtureSource returns a source whose every listing fails with err.
func NewFailingFixtureSource(err error) *FixtureSource {
	return &FixtureSource{err: err}
}

func (s *FixtureSource) ListFixtures(_ context.Context, query fixture.Query) ([]fixture.Fixture, error) {
	if s.err != nil {
		return nil, s.err
	}

	league := textnorm.Name(query.League)
	out := make([]fixture.Fixture, 0, len(s.fixtures))
	for _, item := range s.fixtures {
		if league != "" && textnorm.Name(item.League) != league {
			continue
		}
		if !query.Window.Contains(item.KickoffAt) {
			continue
		}
		out = append(out, item)
	}
	fixture.SortByKickoff(out)
	return out, nil
}
