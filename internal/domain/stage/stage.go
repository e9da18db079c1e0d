// Package stage models the Research, Analyst and Shark reasoning stages and their results.
package stage

import (
	"fmt"
	"strings"
)

// Stage is the closed set of agent chain stages.
type Stage string

const (
	Research Stage = "research"
	Analyst  Stage = "analyst"
	Shark    Stage = "shark"
)

func All() []Stage {
	return []Stage{Research, Analyst, Shark}
}

func Parse(v string) (Stage, error) {
	switch s := Stage(strings.ToLower(strings.TrimSpace(v))); s {
	case Research, Analyst, Shark:
		return s, nil
	default:
		return "", fmt.Errorf("unknown stage %q", v)
	}
}

// PlayerScoped reports whether the stage runs once per player rather than once per fixture.
func (s Stage) PlayerScoped() bool {
	return s == Research || s == Analyst
}

// Upstream is the stage whose results feed s.
func (s Stage) Upstream() (Stage, bool) {
	switch s {
	case Analyst:
		return Research, true
	case Shark:
		return Analyst, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)
