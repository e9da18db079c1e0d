package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

var saka = stage.PlayerRef{PlayerID: "p-7", Name: "Bukayo Saka", TeamName: "Arsenal", Position: "Right Winger"}

func loadSoccer(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if c.Sport() != DefaultSport {
		t.Fatalf("expected default sport, got %q", c.Sport())
	}
	return c
}

func TestRender_Research(t *testing.T) {
	t.Parallel()

	c := loadSoccer(t)
	req, err := c.Render(stage.Research, usecase.ResearchPromptData{
		Fixture:     "Arsenal vs Brentford",
		FixtureDate: "2026-10-24T14:00:00Z",
		League:      "Premier League",
		Player:      saka,
		News: []news.Item{{
			Source:      "BBC Sport",
			URL:         "https://bbc.co.uk/sport/1",
			Title:       "Saka limps off in training",
			Snippet:     "Winger is a doubt.",
			PublishedAt: time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC),
		}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !req.WebSearch || req.Stage != stage.Research || req.MaxTokens <= 0 {
		t.Fatalf("unexpected request options %+v", req)
	}
	for _, want := range []string{"Bukayo Saka (Right Winger)", "Arsenal vs Brentford (Premier League)", "1. Saka limps off in training [BBC Sport] (2026-10-22)", "https://bbc.co.uk/sport/1"} {
		if !strings.Contains(req.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, req.User)
		}
	}
	if !strings.Contains(req.System, `"confidence_score"`) {
		t.Fatalf("system prompt must describe the research JSON shape")
	}
}

func TestRender_ResearchWithoutNews(t *testing.T) {
	t.Parallel()

	req, err := loadSoccer(t).Render(stage.Research, &usecase.ResearchPromptData{Fixture: "A vs B", Player: saka})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(req.User, "No articles were collected") {
		t.Fatalf("expected empty news notice:\n%s", req.User)
	}
}

func TestRender_AnalystAndShark(t *testing.T) {
	t.Parallel()

	c := loadSoccer(t)
	analyst, err := c.Render(stage.Analyst, usecase.AnalystPromptData{
		Fixture: "Arsenal vs Brentford",
		Player:  saka,
		Research: stage.ResearchOutput{
			Summary:     "Saka missed Thursday training with a hamstring issue.",
			KeyFindings: []string{"Missed training"},
			Sources:     []stage.Source{{URL: "https://example.com/a", Title: "Training report"}},
			Confidence:  0.75,
		},
	})
	if err != nil {
		t.Fatalf("render analyst: %v", err)
	}
	if !strings.Contains(analyst.User, "confidence 75%") || !strings.Contains(analyst.User, "- Missed training") {
		t.Fatalf("unexpected analyst prompt:\n%s", analyst.User)
	}

	shark, err := c.Render(stage.Shark, usecase.SharkPromptData{
		Fixture:  "Arsenal vs Brentford",
		HomeTeam: "Arsenal",
		AwayTeam: "Brentford",
		Assessments: []stage.AnalystOutput{
			{Player: saka, Likelihood: 0.6, Availability: stage.AvailabilityDoubtful, Rationale: "Hamstring concern."},
		},
	})
	if err != nil {
		t.Fatalf("render shark: %v", err)
	}
	if !strings.Contains(shark.User, "player_id=p-7 | Bukayo Saka | Arsenal") || !strings.Contains(shark.User, "likelihood=60%") {
		t.Fatalf("unexpected shark prompt:\n%s", shark.User)
	}
	if !strings.Contains(shark.System, `"alert_level"`) || !strings.Contains(shark.System, `"reasoning"`) {
		t.Fatalf("shark system prompt must describe the alert JSON shape")
	}
}

func TestRender_RejectsWrongData(t *testing.T) {
	t.Parallel()

	if _, err := loadSoccer(t).Render(stage.Shark, usecase.ResearchPromptData{}); err == nil {
		t.Fatalf("expected mismatched prompt data to fail")
	}
}

func TestParse_RequiresEveryStage(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("sport: tennis\nstages:\n  research:\n    user: hi\n"))
	if err == nil || !strings.Contains(err.Error(), "missing analyst stage") {
		t.Fatalf("expected missing stage error, got %v", err)
	}

	_, err = Parse([]byte("sport: x\nstages:\n  scoring:\n    user: hi\n"))
	if err == nil {
		t.Fatalf("expected unknown stage to fail")
	}

	if _, err := Load("curling"); err == nil {
		t.Fatalf("expected unknown sport to fail")
	}
}

func TestSports(t *testing.T) {
	t.Parallel()

	sports := Sports()
	if len(sports) == 0 || sports[0] != "soccer" {
		t.Fatalf("unexpected bundled sports %v", sports)
	}
}
