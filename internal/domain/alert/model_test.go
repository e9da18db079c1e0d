package alert

import "testing"

func TestRiskTag_Ordering(t *testing.T) {
	t.Parallel()

	if !RiskHigh.AtLeast(RiskMedium) || RiskLow.AtLeast(RiskMedium) {
		t.Fatalf("unexpected ordering")
	}
	if RiskTag("severe").Rank() >= RiskNone.Rank() {
		t.Fatalf("unknown tags must rank below no_alert")
	}
	if _, err := ParseRiskTag("HIGH"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ParseRiskTag("critical"); err == nil {
		t.Fatalf("expected unknown tag to fail")
	}
}

func TestAlert_Validate(t *testing.T) {
	t.Parallel()

	a := Alert{PlayerID: "p1", FixtureID: "f1", RunID: "r1", RiskTag: RiskHigh}
	if err := a.Validate(); err == nil {
		t.Fatalf("expected missing explanation to fail")
	}
	a.Explanation = "Hamstring strain, missed training"
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
