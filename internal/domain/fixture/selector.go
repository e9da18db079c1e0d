package fixture

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

var (
	ErrNoMatch          = errors.New("no fixture matches selector")
	ErrIndexOutOfRange  = errors.New("fixture index out of range")
	ErrInvalidName      = errors.New("fixture name must look like \"Home vs Away\"")
	fixtureNameSplitter = regexp.MustCompile(`(?i)\s+(?:vs\.?|v)\s+`)
)

// Selector narrows a kickoff-ordered listing. Name and Index are mutually exclusive;
// League filters before either is applied.
type Selector struct {
	Name   string
	Index  *int
	League string
}

func (s Selector) IsAll() bool {
	return strings.TrimSpace(s.Name) == "" && s.Index == nil
}

// ParseName splits "Home vs Away" (or "Home v Away").
func ParseName(v string) (home, away string, err error) {
	parts := fixtureNameSplitter.Split(strings.TrimSpace(v), -1)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, v)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// Select applies s to items, which must already be ordered by SortByKickoff.
func Select(items []Fixture, s Selector) ([]Fixture, error) {
	if strings.TrimSpace(s.Name) != "" && s.Index != nil {
		return nil, fmt.Errorf("fixture name and index cannot be combined")
	}

	filtered := items
	if league := textnorm.Name(s.League); league != "" {
		filtered = make([]Fixture, 0, len(items))
		for _, item := range items {
			if textnorm.Name(item.League) == league {
				filtered = append(filtered, item)
			}
		}
	}

	switch {
	case s.Index != nil:
		idx := *s.Index
		if idx < 0 || idx >= len(filtered) {
			return nil, fmt.Errorf("%w: index %d, %d fixtures listed", ErrIndexOutOfRange, idx, len(filtered))
		}
		return []Fixture{filtered[idx]}, nil
	case strings.TrimSpace(s.Name) != "":
		home, away, err := ParseName(s.Name)
		if err != nil {
			return nil, err
		}
		out := make([]Fixture, 0, 1)
		for _, item := range filtered {
			if textnorm.Equal(item.HomeTeam, home) && textnorm.Equal(item.AwayTeam, away) {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoMatch, s.Name)
		}
		return out, nil
	default:
		return filtered, nil
	}
}
