package cli

import (
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/spf13/cobra"
)

func newRosterCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Team registration and roster maintenance",
	}
	cmd.AddCommand(newRosterPrepareCommand(s))
	return cmd
}

func newRosterPrepareCommand(s *session) *cobra.Command {
	var (
		input     usecase.PrepareInput
		lookahead time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Register the teams of upcoming fixtures and refresh their rosters",
		Example: `  pipeline roster prepare
  pipeline roster prepare --league "Premier League" --teams-only
  pipeline roster prepare --skip-verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults, err := s.defaults()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dry-run") {
				input.DryRun = defaults.DryRun
			}
			if input.MaxAge <= 0 {
				input.MaxAge = defaults.RosterMaxAge
			}
			input.League = strings.TrimSpace(input.League)

			return s.withContainer(cmd.Context(), app.Options{}, func(c *app.Container) error {
				window := lookahead
				if window <= 0 {
					window = defaults.Lookahead
				}
				if window <= 0 {
					window = c.Config.FixtureLookahead
				}
				if input.MaxAge <= 0 {
					input.MaxAge = c.Config.RosterMaxAge
				}
				now := s.env.Now()
				input.Window = fixture.Window{From: now, To: now.Add(window)}

				result, err := c.Preparation.Prepare(cmd.Context(), input)
				if err != nil {
					return err
				}
				if s.globals.json {
					return s.print.json(result)
				}
				s.print.preparation(result)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&input.League, "league", "", "only teams playing in this league")
	flags.BoolVar(&input.TeamsOnly, "teams-only", false, "register missing teams without refreshing rosters")
	flags.BoolVar(&input.SkipVerify, "skip-verify", false, "accept a unique name match without confirming the league")
	flags.BoolVar(&input.DryRun, "dry-run", false, "look teams up without writing")
	flags.DurationVar(&input.MaxAge, "max-age", 0, "refresh rosters older than this")
	flags.DurationVar(&lookahead, "lookahead", 0, "fixture window from now")
	return cmd
}
