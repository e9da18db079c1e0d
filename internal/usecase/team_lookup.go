package usecase

import (
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

var errTeamUnverified = crerr.Mark(crerr.New("team registration needs manual review"), ErrTeamNotFound)

// leagueAliases lists text that identifies a league in provider search context.
var leagueAliases = map[string][]string{
	"premier league":       {"premier league", "england"},
	"championship":         {"championship", "england"},
	"la liga":              {"laliga", "la liga", "spain", "primera division"},
	"bundesliga":           {"bundesliga", "germany"},
	"serie a":              {"serie a", "italy"},
	"ligue 1":              {"ligue 1", "france"},
	"eredivisie":           {"eredivisie", "netherlands"},
	"primeira liga":        {"primeira liga", "liga portugal", "portugal"},
	"scottish premiership": {"scottish premiership", "scotland"},
	"mls":                  {"mls", "major league soccer", "united states", "usa"},
}

var leagueCountries = map[string]string{
	"premier league":       "England",
	"championship":         "England",
	"la liga":              "Spain",
	"bundesliga":           "Germany",
	"serie a":              "Italy",
	"ligue 1":              "France",
	"eredivisie":           "Netherlands",
	"primeira liga":        "Portugal",
	"scottish premiership": "Scotland",
	"mls":                  "USA",
}

// clubAffixes are dropped before comparing club names ("Arsenal FC" == "Arsenal").
var clubAffixes = map[string]struct{}{
	"fc": {}, "afc": {}, "cf": {}, "sc": {}, "ac": {}, "cd": {}, "ssc": {}, "as": {},
}

func leagueCountry(league string) string {
	return leagueCountries[textnorm.Name(league)]
}

type teamMatch struct {
	candidate       TeamCandidate
	leagueConfirmed bool
}

// resolveTeamCandidate picks exactly one candidate or fails with ErrTeamNotFound. Exact name
// matches win over partial ones; league context only breaks ties, it never promotes a
// partial match over an exact one.
func resolveTeamCandidate(name, league string, candidates []TeamCandidate) (teamMatch, error) {
	target := clubName(name)
	if target == "" {
		return teamMatch{}, fmt.Errorf("%w: empty team name", ErrTeamNotFound)
	}

	seen := make(map[string]struct{}, len(candidates))
	var exact, partial []teamMatch
	for _, c := range candidates {
		if strings.TrimSpace(c.ExternalID) == "" {
			continue
		}
		if _, dup := seen[c.ExternalID]; dup {
			continue
		}
		seen[c.ExternalID] = struct{}{}

		m := teamMatch{candidate: c, leagueConfirmed: leagueMentioned(league, c.Context)}
		found := clubName(c.Name)
		switch {
		case found == target:
			exact = append(exact, m)
		case containsWords(found, target):
			partial = append(partial, m)
		}
	}

	for _, group := range [][]teamMatch{exact, partial} {
		switch len(group) {
		case 0:
			continue
		case 1:
			return group[0], nil
		}
		var confirmed []teamMatch
		for _, m := range group {
			if m.leagueConfirmed {
				confirmed = append(confirmed, m)
			}
		}
		if len(confirmed) == 1 {
			return confirmed[0], nil
		}
		return teamMatch{}, fmt.Errorf("%w: %q is ambiguous (%d candidates)", ErrTeamNotFound, name, len(group))
	}

	return teamMatch{}, fmt.Errorf("%w: no provider match for %q", ErrTeamNotFound, name)
}

func clubName(v string) string {
	words := strings.Fields(textnorm.Name(v))
	out := words[:0]
	for _, w := range words {
		if _, skip := clubAffixes[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func containsWords(haystack, needle string) bool {
	have := make(map[string]struct{})
	for _, w := range strings.Fields(haystack) {
		have[w] = struct{}{}
	}
	words := strings.Fields(needle)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

func leagueMentioned(league, context string) bool {
	ctx := textnorm.Name(context)
	if ctx == "" {
		return false
	}
	key := textnorm.Name(league)
	aliases, ok := leagueAliases[key]
	if !ok {
		aliases = []string{key}
	}
	for _, alias := range aliases {
		if strings.Contains(ctx, alias) {
			return true
		}
	}
	return false
}
