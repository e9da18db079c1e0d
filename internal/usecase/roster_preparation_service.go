package usecase

import (
	"context"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/team"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

type PrepareInput struct {
	League string
	Window fixture.Window
	// TeamsOnly registers missing teams and skips roster updates.
	TeamsOnly bool
	// SkipVerify accepts a unique name match even when the league is not confirmed.
	SkipVerify bool
	DryRun     bool
	MaxAge     time.Duration
}

type TeamPreparation struct {
	Team   string `json:"team"`
	League string `json:"league"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type PreparationResult struct {
	FixturesFound     int               `json:"fixtures_found"`
	TeamsFound        int               `json:"teams_found"`
	AlreadyRegistered int               `json:"already_registered"`
	Added             int               `json:"added"`
	Skipped           int               `json:"skipped"`
	NotFound          int               `json:"not_found"`
	RostersUpdated    int               `json:"rosters_updated"`
	RostersFailed     int               `json:"rosters_failed"`
	Teams             []TeamPreparation `json:"teams"`
}

const (
	prepStatusRegistered = "registered"
	prepStatusAdded      = "added"
	prepStatusSkipped    = "skipped"
	prepStatusNotFound   = "not_found"
	prepStatusSynced     = "synced"
	prepStatusSyncFailed = "sync_failed"
)

// RosterPreparationService registers every team of the upcoming fixtures and refreshes their
// rosters ahead of a pipeline run.
type RosterPreparationService struct {
	source fixture.Source
	teams  team.Repository
	sync   *RosterSynchronizer
	logger *logging.Logger
}

func NewRosterPreparationService(source fixture.Source, teams team.Repository, sync *RosterSynchronizer, logger *logging.Logger) *RosterPreparationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RosterPreparationService{source: source, teams: teams, sync: sync, logger: logger}
}

func (s *RosterPreparationService) Prepare(ctx context.Context, input PrepareInput) (PreparationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterPreparationService.Prepare")
	defer span.End()

	fixtures, err := s.source.ListFixtures(ctx, fixture.Query{League: input.League, Window: input.Window})
	if err != nil {
		return PreparationResult{}, crerr.Mark(crerr.Wrap(err, "list fixtures"), ErrSourceUnavailable)
	}
	fixtures, err = fixture.Select(fixtures, fixture.Selector{League: input.League})
	if err != nil {
		return PreparationResult{}, err
	}

	type teamRef struct{ name, league string }
	seen := make(map[string]teamRef)
	for _, fx := range fixtures {
		for _, name := range fx.Teams() {
			seen[team.Key(fx.League, name)] = teamRef{name: name, league: fx.League}
		}
	}
	refs := make([]teamRef, 0, len(seen))
	for _, ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].league != refs[j].league {
			return refs[i].league < refs[j].league
		}
		return refs[i].name < refs[j].name
	})

	result := PreparationResult{FixturesFound: len(fixtures), TeamsFound: len(refs)}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := TeamPreparation{Team: ref.name, League: ref.league}

		existing, found, err := s.teams.GetByName(ctx, ref.league, ref.name)
		if err != nil {
			return result, crerr.Mark(crerr.Wrapf(err, "get team %q", ref.name), ErrPersistence)
		}

		var registered team.Team
		if found && existing.Registered() {
			result.AlreadyRegistered++
			entry.Status = prepStatusRegistered
			registered = existing
		} else {
			registered, err = s.sync.Ensure(ctx, ref.name, ref.league, EnsureOptions{
				RequireLeagueMatch: !input.SkipVerify,
				DryRun:             input.DryRun,
			})
			switch {
			case err == nil:
				result.Added++
				entry.Status = prepStatusAdded
			case crerr.Is(err, errTeamUnverified):
				result.Skipped++
				entry.Status = prepStatusSkipped
				entry.Detail = err.Error()
			case crerr.Is(err, ErrTeamNotFound):
				result.NotFound++
				entry.Status = prepStatusNotFound
				entry.Detail = err.Error()
			default:
				result.NotFound++
				entry.Status = prepStatusNotFound
				entry.Detail = err.Error()
				s.logger.WarnContext(ctx, "team registration failed", "team", ref.name, "league", ref.league, "error", err)
			}
		}

		if err == nil && !input.TeamsOnly {
			sync, syncErr := s.sync.Sync(ctx, registered, SyncOptions{MaxAge: input.MaxAge, DryRun: input.DryRun})
			if syncErr != nil {
				result.RostersFailed++
				entry.Status = prepStatusSyncFailed
				entry.Detail = syncErr.Error()
			} else {
				result.RostersUpdated++
				if !sync.Skipped {
					entry.Status = prepStatusSynced
				}
			}
		}
		result.Teams = append(result.Teams, entry)
	}

	s.logger.InfoContext(ctx, "roster preparation finished",
		"fixtures_found", result.FixturesFound,
		"teams_found", result.TeamsFound,
		"already_registered", result.AlreadyRegistered,
		"added", result.Added,
		"skipped", result.Skipped,
		"not_found", result.NotFound,
		"rosters_updated", result.RostersUpdated,
		"rosters_failed", result.RostersFailed,
	)
	return result, nil
}
