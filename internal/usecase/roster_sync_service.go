package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/roster"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/id"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/keyedmutex"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/textnorm"
)

const DefaultRosterMaxAge = 24 * time.Hour

// TeamCandidate is one club hit from a roster provider search. Context is the free text shown
// next to the hit (competition, country) and is used to confirm the league.
type TeamCandidate struct {
	ExternalID string
	Slug       string
	Name       string
	Context    string
}

// RosterProvider looks up clubs and scrapes their current squad.
type RosterProvider interface {
	SearchTeams(ctx context.Context, name string) ([]TeamCandidate, error)
	// FetchSquad returns ErrScrapeParse when the page cannot be read as a squad list.
	FetchSquad(ctx context.Context, externalID, slug string) ([]roster.ScrapedPlayer, error)
}

type EnsureOptions struct {
	// RequireLeagueMatch rejects name-only matches whose search context does not mention the league.
	RequireLeagueMatch bool
	DryRun             bool
}

type SyncOptions struct {
	MaxAge time.Duration
	DryRun bool
}

// RosterSyncResult describes one team sync. Roster is the active roster after the sync, or the
// untouched prior roster when the sync failed.
type RosterSyncResult struct {
	Team        team.Team
	StateBefore team.RegistrationState
	Skipped     bool
	Inserted    int
	Reactivated int
	Deactivated int
	Unchanged   int
	Ambiguous   []string
	Roster      []roster.Entry
}

func (r RosterSyncResult) Writes() int {
	return r.Inserted + r.Reactivated + r.Deactivated + r.Unchanged
}

// RosterSynchronizer is the only writer of teams and roster entries. Work on one team is
// serialized; different teams sync in parallel.
type RosterSynchronizer struct {
	teams    team.Repository
	rosters  roster.Repository
	provider RosterProvider
	ids      id.Generator
	tracker  *UsageTracker
	policy   CallPolicy
	logger   *logging.Logger
	locks    *keyedmutex.Mutex
	now      func() time.Time
}

func NewRosterSynchronizer(
	teams team.Repository,
	rosters roster.Repository,
	provider RosterProvider,
	ids id.Generator,
	tracker *UsageTracker,
	policy CallPolicy,
	logger *logging.Logger,
) *RosterSynchronizer {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &RosterSynchronizer{
		teams:    teams,
		rosters:  rosters,
		provider: provider,
		ids:      ids,
		tracker:  tracker,
		policy:   policy.normalized(),
		logger:   logger,
		locks:    keyedmutex.New(),
		now:      time.Now,
	}
}

// EnsureTeam returns the registered team for (name, league), looking it up with the provider when
// it is unknown. No match and more than one plausible match both fail with ErrTeamNotFound.
func (s *RosterSynchronizer) EnsureTeam(ctx context.Context, name, league string) (team.Team, error) {
	return s.Ensure(ctx, name, league, EnsureOptions{})
}

func (s *RosterSynchronizer) Ensure(ctx context.Context, name, league string, opts EnsureOptions) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterSynchronizer.Ensure")
	defer span.End()

	name = strings.TrimSpace(name)
	league = strings.TrimSpace(league)
	if name == "" || league == "" {
		return team.Team{}, fmt.Errorf("%w: team name and league are required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(team.Key(league, name))
	defer unlock()

	existing, found, err := s.teams.GetByName(ctx, league, name)
	if err != nil {
		return team.Team{}, crerr.Mark(crerr.Wrapf(err, "get team %q", name), ErrPersistence)
	}
	if found && existing.Registered() {
		return existing, nil
	}

	candidates, err := s.searchTeams(ctx, name)
	if err != nil {
		return team.Team{}, err
	}
	match, err := resolveTeamCandidate(name, league, candidates)
	if err != nil {
		s.logger.WarnContext(ctx, "team lookup unresolved", "team", name, "league", league, "candidates", len(candidates), "error", err)
		return team.Team{}, err
	}
	if opts.RequireLeagueMatch && !match.leagueConfirmed {
		return team.Team{}, fmt.Errorf("%w: %q matched %q but league %q is not confirmed", errTeamUnverified, name, match.candidate.Name, league)
	}

	now := s.now().UTC()
	item := existing
	if !found {
		teamID, idErr := s.ids.NewID()
		if idErr != nil {
			return team.Team{}, idErr
		}
		item = team.Team{ID: teamID, Name: name, League: league, CreatedAt: now}
	}
	item.ExternalID = match.candidate.ExternalID
	item.ExternalSlug = match.candidate.Slug
	if item.Country == "" {
		item.Country = leagueCountry(league)
	}
	item.UpdatedAt = now
	if err := item.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if opts.DryRun {
		return item, nil
	}
	stored, err := s.teams.Upsert(ctx, item)
	if err != nil {
		return team.Team{}, crerr.Mark(crerr.Wrapf(err, "register team %q", name), ErrPersistence)
	}

	s.logger.InfoContext(ctx, "team registered",
		"team", stored.Name,
		"league", stored.League,
		"external_id", stored.ExternalID,
		"external_name", match.candidate.Name,
	)
	return stored, nil
}

// SyncRoster refreshes t's roster when it is older than maxAge. A fresh roster is a no-op.
func (s *RosterSynchronizer) SyncRoster(ctx context.Context, t team.Team, maxAge time.Duration) (RosterSyncResult, error) {
	return s.Sync(ctx, t, SyncOptions{MaxAge: maxAge})
}

func (s *RosterSynchronizer) Sync(ctx context.Context, t team.Team, opts SyncOptions) (RosterSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterSynchronizer.Sync")
	defer span.End()

	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultRosterMaxAge
	}

	unlock := s.locks.Lock(t.Key())
	defer unlock()

	// Another fixture may have synced this team while we waited on the lock.
	if stored, found, err := s.teams.GetByID(ctx, t.ID); err != nil {
		return RosterSyncResult{Team: t}, crerr.Mark(crerr.Wrapf(err, "get team %s", t.ID), ErrPersistence)
	} else if found {
		t = stored
	}

	now := s.now().UTC()
	result := RosterSyncResult{Team: t, StateBefore: t.State(now, opts.MaxAge)}
	if !t.Registered() {
		return result, fmt.Errorf("%w: team %q has no provider registration", ErrTeamNotFound, t.Name)
	}

	prior, err := s.rosters.ListByTeam(ctx, t.ID, true)
	if err != nil {
		return result, crerr.Mark(crerr.Wrapf(err, "list roster team_id=%s", t.ID), ErrPersistence)
	}

	if result.StateBefore == team.StateFresh {
		s.logger.DebugContext(ctx, "roster still fresh, sync skipped", "team", t.Name)
		result.Skipped = true
		result.Roster = activeEntries(prior)
		return result, nil
	}

	scraped, err := s.fetchSquad(ctx, t)
	if err == nil && len(scraped) == 0 {
		err = fmt.Errorf("%w: empty squad for %q", ErrScrapeParse, t.Name)
	}
	if err != nil {
		result.Roster = activeEntries(prior)
		s.logger.WarnContext(ctx, "roster scrape failed, keeping prior roster",
			"team", t.Name,
			"active_entries", len(result.Roster),
			"error", err,
		)
		return result, err
	}

	part := roster.Diff(prior, scraped)
	change, err := s.buildChange(t, part, now)
	if err != nil {
		return result, err
	}

	result.Inserted = len(part.Inserted)
	result.Reactivated = len(part.Reactivated)
	result.Deactivated = len(part.Deactivated)
	result.Unchanged = len(part.Unchanged)
	result.Ambiguous = part.Ambiguous
	result.Roster = rosterAfter(prior, change)

	if !opts.DryRun {
		if err := s.rosters.ApplySync(ctx, t.ID, change, now); err != nil {
			result.Roster = activeEntries(prior)
			return result, crerr.Mark(crerr.Wrapf(err, "apply roster sync team_id=%s", t.ID), ErrPersistence)
		}
	}
	synced := now
	result.Team.LastSyncedAt = &synced

	if len(part.Ambiguous) > 0 {
		s.logger.WarnContext(ctx, "ambiguous roster names left untouched", "team", t.Name, "names", strings.Join(part.Ambiguous, ", "))
	}
	s.logger.InfoContext(ctx, "roster synced",
		"team", t.Name,
		"inserted", result.Inserted,
		"reactivated", result.Reactivated,
		"deactivated", result.Deactivated,
		"unchanged", result.Unchanged,
		"dry_run", opts.DryRun,
	)
	return result, nil
}

// StoredRoster reads a registered team's active roster without contacting the provider.
func (s *RosterSynchronizer) StoredRoster(ctx context.Context, name, league string) (team.Team, []roster.Entry, error) {
	t, found, err := s.teams.GetByName(ctx, league, name)
	if err != nil {
		return team.Team{}, nil, crerr.Mark(crerr.Wrapf(err, "get team %q", name), ErrPersistence)
	}
	if !found {
		return team.Team{}, nil, fmt.Errorf("%w: %q is not registered in %s", ErrTeamNotFound, name, league)
	}
	entries, err := s.rosters.ListByTeam(ctx, t.ID, false)
	if err != nil {
		return t, nil, crerr.Mark(crerr.Wrapf(err, "list roster team_id=%s", t.ID), ErrPersistence)
	}
	return t, activeEntries(entries), nil
}

func (s *RosterSynchronizer) buildChange(t team.Team, part roster.Partition, now time.Time) (roster.Change, error) {
	var change roster.Change
	for _, p := range part.Inserted {
		entryID, err := s.ids.NewID()
		if err != nil {
			return roster.Change{}, err
		}
		playerID, err := s.ids.NewID()
		if err != nil {
			return roster.Change{}, err
		}
		change.Insert = append(change.Insert, roster.Entry{
			ID:             entryID,
			PlayerID:       playerID,
			TeamID:         t.ID,
			Name:           strings.TrimSpace(p.Name),
			NormalizedName: textnorm.Name(p.Name),
			Position:       p.Position,
			ExternalID:     p.ExternalID,
			Active:         true,
			StartDate:      now,
			LastSyncedAt:   now,
		})
	}
	for _, e := range part.Reactivated {
		e.Active = true
		e.EndDate = nil
		e.StartDate = now
		e.LastSyncedAt = now
		change.Reactivate = append(change.Reactivate, e)
	}
	for _, e := range part.Deactivated {
		end := now
		e.Active = false
		e.EndDate = &end
		e.LastSyncedAt = now
		change.Deactivate = append(change.Deactivate, e)
	}
	for _, e := range part.Unchanged {
		e.LastSyncedAt = now
		change.Update = append(change.Update, e)
	}
	return change, nil
}

func (s *RosterSynchronizer) searchTeams(ctx context.Context, name string) ([]TeamCandidate, error) {
	start := time.Now()
	out, attempts, err := retry.Do(ctx, s.policy.transientPolicy(ctx, s.logger, "team_lookup"), func(ctx context.Context, _ int) ([]TeamCandidate, error) {
		callCtx, cancel := s.policy.callContext(ctx)
		defer cancel()
		return s.provider.SearchTeams(callCtx, name)
	})
	s.tracker.Track(usage.Record{
		RunID:   runIDFromContext(ctx),
		Stage:   usage.StageTeamLookup,
		Latency: time.Since(start),
		Failed:  err != nil,
	})
	if err != nil {
		return nil, crerr.Wrapf(err, "search team %q (attempts=%d)", name, attempts)
	}
	return out, nil
}

func (s *RosterSynchronizer) fetchSquad(ctx context.Context, t team.Team) ([]roster.ScrapedPlayer, error) {
	start := time.Now()
	out, attempts, err := retry.Do(ctx, s.policy.transientPolicy(ctx, s.logger, "roster_fetch"), func(ctx context.Context, _ int) ([]roster.ScrapedPlayer, error) {
		callCtx, cancel := s.policy.callContext(ctx)
		defer cancel()
		return s.provider.FetchSquad(callCtx, t.ExternalID, t.ExternalSlug)
	})
	s.tracker.Track(usage.Record{
		RunID:   runIDFromContext(ctx),
		Stage:   usage.StageRosterFetch,
		Latency: time.Since(start),
		Failed:  err != nil,
	})
	if err != nil {
		return nil, crerr.Wrapf(err, "fetch squad %q (attempts=%d)", t.Name, attempts)
	}
	return out, nil
}

func activeEntries(entries []roster.Entry) []roster.Entry {
	out := make([]roster.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Active {
			out = append(out, e)
		}
	}
	sortEntriesByName(out)
	return out
}

func rosterAfter(prior []roster.Entry, change roster.Change) []roster.Entry {
	byID := make(map[string]roster.Entry, len(prior))
	for _, e := range prior {
		if e.Active {
			byID[e.ID] = e
		}
	}
	for _, e := range change.Update {
		byID[e.ID] = e
	}
	for _, e := range change.Deactivate {
		delete(byID, e.ID)
	}
	for _, e := range change.Reactivate {
		byID[e.ID] = e
	}
	for _, e := range change.Insert {
		byID[e.ID] = e
	}

	out := make([]roster.Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sortEntriesByName(out)
	return out
}

func sortEntriesByName(items []roster.Entry) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].NormalizedName != items[j].NormalizedName {
			return items[i].NormalizedName < items[j].NormalizedName
		}
		return items[i].ID < items[j].ID
	})
}
