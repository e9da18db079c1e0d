package fixture

import (
	"errors"
	"testing"
	"time"
)

func sampleFixtures() []Fixture {
	base := time.Date(2026, 10, 24, 14, 0, 0, 0, time.UTC)
	items := []Fixture{
		{ID: "f3", League: "Premier League", HomeTeam: "Chelsea", AwayTeam: "Everton", KickoffAt: base.Add(3 * time.Hour)},
		{ID: "f1", League: "Premier League", HomeTeam: "Arsenal", AwayTeam: "Brentford", KickoffAt: base},
		{ID: "f2", League: "La Liga", HomeTeam: "Real Madrid", AwayTeam: "Getafe", KickoffAt: base},
	}
	SortByKickoff(items)
	return items
}

func TestSortByKickoff_StableTieBreak(t *testing.T) {
	t.Parallel()

	items := sampleFixtures()
	got := []string{items[0].ID, items[1].ID, items[2].ID}
	want := []string{"f2", "f1", "f3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
}

func TestSelect_ByName(t *testing.T) {
	t.Parallel()

	out, err := Select(sampleFixtures(), Selector{Name: "arsenal v BRENTFORD"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(out) != 1 || out[0].ID != "f1" {
		t.Fatalf("unexpected selection %+v", out)
	}

	if _, err := Select(sampleFixtures(), Selector{Name: "Arsenal vs Chelsea"}); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, err := Select(sampleFixtures(), Selector{Name: "Arsenal"}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestSelect_ByIndexAfterLeagueFilter(t *testing.T) {
	t.Parallel()

	idx := 1
	out, err := Select(sampleFixtures(), Selector{Index: &idx, League: "premier league"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(out) != 1 || out[0].ID != "f3" {
		t.Fatalf("unexpected selection %+v", out)
	}

	idx = 5
	if _, err := Select(sampleFixtures(), Selector{Index: &idx}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestFixture_Validate(t *testing.T) {
	t.Parallel()

	f := Fixture{ID: "f1", League: "Premier League", HomeTeam: "Arsenal", AwayTeam: "arsenal", KickoffAt: time.Now()}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected home == away to be rejected")
	}
	f.AwayTeam = "Brentford"
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeriveID_Stable(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 10, 24, 14, 0, 0, 0, time.UTC)
	a := DeriveID("Premier League", "Arsenal", "Brentford", kickoff)
	b := DeriveID("premier league", "ARSENAL", "Brentford", kickoff.Add(2*time.Hour))
	if a != b {
		t.Fatalf("expected same id for same matchday, got %s and %s", a, b)
	}
}
