package roster

import (
	"sort"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

// Partition is the outcome of comparing stored entries against a fresh scrape.
// Unchanged entries carry the scraped name and position so they can be refreshed in place.
type Partition struct {
	Inserted    []ScrapedPlayer
	Reactivated []Entry
	Deactivated []Entry
	Unchanged   []Entry
	// Ambiguous lists normalized names that matched more than one stored entry, or appeared
	// more than once in the scrape. Entries with those names are left as they are.
	Ambiguous []string
}

// Diff compares prior entries (active and inactive) with a scrape using case-insensitive exact
// matching on normalized names. It never merges two names and has no side effects.
func Diff(prior []Entry, scraped []ScrapedPlayer) Partition {
	var out Partition

	scrapedByName := make(map[string][]ScrapedPlayer, len(scraped))
	for _, p := range scraped {
		key := textnorm.Name(p.Name)
		if key == "" {
			continue
		}
		scrapedByName[key] = append(scrapedByName[key], p)
	}

	activeByName := make(map[string][]Entry)
	inactiveByName := make(map[string][]Entry)
	for _, e := range prior {
		key := e.NormalizedName
		if key == "" {
			key = textnorm.Name(e.Name)
		}
		if e.Active {
			activeByName[key] = append(activeByName[key], e)
		} else {
			inactiveByName[key] = append(inactiveByName[key], e)
		}
	}

	ambiguous := make(map[string]struct{})
	for key, players := range scrapedByName {
		if len(players) > 1 || len(activeByName[key]) > 1 {
			ambiguous[key] = struct{}{}
			continue
		}
		player := players[0]

		if active := activeByName[key]; len(active) == 1 {
			entry := active[0]
			entry.Name = player.Name
			entry.NormalizedName = key
			if player.Position != "" {
				entry.Position = player.Position
			}
			if player.ExternalID != "" {
				entry.ExternalID = player.ExternalID
			}
			out.Unchanged = append(out.Unchanged, entry)
			continue
		}

		switch inactive := inactiveByName[key]; len(inactive) {
		case 0:
			out.Inserted = append(out.Inserted, player)
		case 1:
			entry := inactive[0]
			entry.Name = player.Name
			entry.NormalizedName = key
			if player.Position != "" {
				entry.Position = player.Position
			}
			out.Reactivated = append(out.Reactivated, entry)
		default:
			ambiguous[key] = struct{}{}
		}
	}

	for key, entries := range activeByName {
		if _, seen := scrapedByName[key]; seen {
			continue
		}
		out.Deactivated = append(out.Deactivated, entries...)
	}

	for key := range ambiguous {
		out.Ambiguous = append(out.Ambiguous, key)
	}

	sort.Slice(out.Inserted, func(i, j int) bool {
		return textnorm.Name(out.Inserted[i].Name) < textnorm.Name(out.Inserted[j].Name)
	})
	sortEntries(out.Reactivated)
	sortEntries(out.Deactivated)
	sortEntries(out.Unchanged)
	sort.Strings(out.Ambiguous)

	return out
}

func sortEntries(items []Entry) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
