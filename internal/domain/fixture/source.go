package fixture

import (
	"context"
	"time"
)

// Window bounds kickoff times; a zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

type Query struct {
	League string
	Window Window
}

// Source lists upcoming fixtures ordered by kickoff ascending.
// Calling it again with the same query restarts the listing.
type Source interface {
	ListFixtures(ctx context.Context, query Query) ([]Fixture, error)
}
