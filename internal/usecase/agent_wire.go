package usecase

import (
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
)

// Reasoning service response shapes. Validation failures surface as ErrMalformedOutput.

type researchSourceWire struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type researchWire struct {
	Summary     string               `json:"summary" validate:"required"`
	KeyFindings []string             `json:"key_findings"`
	Sources     []researchSourceWire `json:"sources"`
	Confidence  float64              `json:"confidence_score" validate:"gte=0,lte=1"`
}

func (w researchWire) sources() []stage.Source {
	out := make([]stage.Source, 0, len(w.Sources))
	for _, s := range w.Sources {
		url := strings.TrimSpace(s.URL)
		if url == "" {
			continue
		}
		out = append(out, stage.Source{URL: url, Title: strings.TrimSpace(s.Title)})
	}
	return out
}

type analystWire struct {
	Likelihood   float64 `json:"likelihood" validate:"gte=0,lte=1"`
	Availability string  `json:"availability" validate:"required"`
	Rationale    string  `json:"rationale" validate:"required"`
}

type sharkVerdictWire struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name" validate:"required_without=PlayerID"`
	RiskTag     string `json:"alert_level" validate:"required,oneof=no_alert low medium high"`
	Explanation string `json:"reasoning" validate:"required"`
}

type sharkWire struct {
	Alerts []sharkVerdictWire `json:"alerts" validate:"dive"`
}
