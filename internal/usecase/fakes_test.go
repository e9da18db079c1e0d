package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/news"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

var testLogger = logging.NewNop()

// fastPolicy keeps retry delays out of test wall time.
var fastPolicy = CallPolicy{Timeout: 2 * time.Second, MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

type sequenceIDs struct {
	prefix string
	n      atomic.Int64
}

func (g *sequenceIDs) NewID() (string, error) {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1)), nil
}

type fakeRosterProvider struct {
	mu         sync.Mutex
	candidates map[string][]TeamCandidate
	squads     map[string][]roster.ScrapedPlayer
	squadErr   map[string]error
	searches   map[string]int
	fetches    int
}

func newFakeRosterProvider() *fakeRosterProvider {
	return &fakeRosterProvider{
		candidates: make(map[string][]TeamCandidate),
		squads:     make(map[string][]roster.ScrapedPlayer),
		squadErr:   make(map[string]error),
		searches:   make(map[string]int),
	}
}

// addClub registers a single unambiguous club with the given squad.
func (p *fakeRosterProvider) addClub(name, league string, players ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	externalID := fmt.Sprintf("%d", 100+len(p.candidates))
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	p.candidates[strings.ToLower(name)] = []TeamCandidate{{ExternalID: externalID, Slug: slug, Name: name + " FC", Context: league}}
	p.squads[externalID] = scraped(players...)
	return externalID
}

func (p *fakeRosterProvider) setSquad(externalID string, players ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.squads[externalID] = scraped(players...)
}

func (p *fakeRosterProvider) SearchTeams(_ context.Context, name string) ([]TeamCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.searches[strings.ToLower(name)]++
	return append([]TeamCandidate(nil), p.candidates[strings.ToLower(name)]...), nil
}

func (p *fakeRosterProvider) FetchSquad(_ context.Context, externalID, _ string) ([]roster.ScrapedPlayer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetches++
	if err := p.squadErr[externalID]; err != nil {
		return nil, err
	}
	return append([]roster.ScrapedPlayer(nil), p.squads[externalID]...), nil
}

func (p *fakeRosterProvider) searchCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.searches[strings.ToLower(name)]
}

func scraped(names ...string) []roster.ScrapedPlayer {
	out := make([]roster.ScrapedPlayer, 0, len(names))
	for _, name := range names {
		out = append(out, roster.ScrapedPlayer{Name: name, Position: "Midfield"})
	}
	return out
}

// jsonPrompts renders the prompt data as JSON so fake reasoning can read it back.
type jsonPrompts struct{}

func (jsonPrompts) Render(st stage.Stage, data any) (ReasoningRequest, error) {
	raw, err := sonic.MarshalString(data)
	if err != nil {
		return ReasoningRequest{}, err
	}
	return ReasoningRequest{Stage: st, System: "test " + string(st), User: raw, MaxTokens: 100}, nil
}

// fakeReasoning answers each stage from the prompt data. Players whose name contains "Injured"
// are reported out with a high likelihood and flagged high by the shark stage.
type fakeReasoning struct {
	mu       sync.Mutex
	calls    map[stage.Stage]int
	override map[stage.Stage][]string
	delay    time.Duration
	onCall   func(stage.Stage)

	inFlight atomic.Int64
	peak     atomic.Int64
}

func newFakeReasoning() *fakeReasoning {
	return &fakeReasoning{calls: make(map[stage.Stage]int), override: make(map[stage.Stage][]string)}
}

// script queues raw responses returned, in order, before the default behavior resumes.
func (f *fakeReasoning) script(st stage.Stage, responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.override[st] = append(f.override[st], responses...)
}

func (f *fakeReasoning) callCount(st stage.Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[st]
}

func (f *fakeReasoning) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeReasoning) Complete(_ context.Context, req ReasoningRequest) (ReasoningResponse, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.onCall != nil {
		f.onCall(req.Stage)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[req.Stage]++
	var scripted string
	if queue := f.override[req.Stage]; len(queue) > 0 {
		scripted, f.override[req.Stage] = queue[0], queue[1:]
	}
	f.mu.Unlock()

	resp := ReasoningResponse{Model: "fake-model", Usage: ReasoningUsage{PromptTokens: 10, CompletionTokens: 5, ReasoningTokens: 2}}
	if scripted != "" {
		if scripted == "!rate_limited" {
			return resp, &RateLimitError{Provider: "fake", RetryAfter: time.Millisecond}
		}
		resp.Content = scripted
		return resp, nil
	}

	switch req.Stage {
	case stage.Research:
		var data ResearchPromptData
		if err := sonic.UnmarshalString(req.User, &data); err != nil {
			return resp, err
		}
		resp.Content = fmt.Sprintf(`{"summary":"news for %s","key_findings":["trained"],"sources":[{"url":"https://example.com/a","title":"a"}],"confidence_score":0.7}`, data.Player.Name)
	case stage.Analyst:
		var data AnalystPromptData
		if err := sonic.UnmarshalString(req.User, &data); err != nil {
			return resp, err
		}
		if strings.Contains(data.Player.Name, "Injured") {
			resp.Content = `{"likelihood":0.9,"availability":"out","rationale":"hamstring"}`
		} else {
			resp.Content = "```json\n{\"likelihood\":0.1,\"availability\":\"available\",\"rationale\":\"fit\"}\n```"
		}
	case stage.Shark:
		var data SharkPromptData
		if err := sonic.UnmarshalString(req.User, &data); err != nil {
			return resp, err
		}
		verdicts := make([]string, 0, len(data.Assessments))
		for _, a := range data.Assessments {
			level := "no_alert"
			if a.Likelihood > 0.5 {
				level = "high"
			}
			verdicts = append(verdicts, fmt.Sprintf(`{"player_id":%q,"player_name":%q,"alert_level":%q,"reasoning":"assessed"}`, a.Player.PlayerID, a.Player.Name, level))
		}
		resp.Content = `{"alerts":[` + strings.Join(verdicts, ",") + `]}`
	}
	return resp, nil
}

type fakeNews struct {
	err   error
	calls atomic.Int64
}

func (f *fakeNews) Search(_ context.Context, query news.Query) ([]news.Item, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []news.Item{{
		Source:      "fake",
		URL:         "https://news.example.com/" + strings.ReplaceAll(strings.ToLower(query.PlayerName), " ", "-"),
		Title:       query.PlayerName + " latest",
		PublishedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}}, nil
}
