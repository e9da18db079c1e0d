package id

import (
	"testing"
	"time"
)

func TestUUIDGenerator_Unique(t *testing.T) {
	t.Parallel()

	g := NewUUIDGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v, err := g.NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id %s", v)
		}
		seen[v] = struct{}{}
	}
}

func TestRunID_RoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 19, 10, 15, 0, 0, time.Local)
	runID := NewRunID(at)
	if runID != "2026_10_19_101500" {
		t.Fatalf("unexpected run id %q", runID)
	}
	parsed, ok := ParseRunID(runID)
	if !ok || !parsed.Equal(at) {
		t.Fatalf("unexpected parse result %v ok=%v", parsed, ok)
	}
	if _, ok := ParseRunID("manual-run"); ok {
		t.Fatalf("expected non-timestamp run id to be rejected")
	}
}
