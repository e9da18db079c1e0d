package cli

import (
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/spf13/cobra"
)

func newFixturesCommand(s *session) *cobra.Command {
	var (
		league    string
		lookahead time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "List upcoming fixtures with the index used by run --index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults, err := s.defaults()
			if err != nil {
				return err
			}
			return s.withContainer(cmd.Context(), app.Options{}, func(c *app.Container) error {
				window := lookahead
				if window <= 0 {
					window = defaults.Lookahead
				}
				if window <= 0 {
					window = c.Config.FixtureLookahead
				}
				now := s.env.Now()
				summary, err := c.Orchestrator.Run(cmd.Context(), usecase.RunOptions{
					FixturesOnly: true,
					Selector:     fixture.Selector{League: strings.TrimSpace(league)},
					Window:       fixture.Window{From: now, To: now.Add(window)},
				})
				if err != nil {
					return err
				}
				if s.globals.json {
					return s.print.json(summary.Fixtures)
				}
				s.print.fixtures(summary.Fixtures)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "only fixtures of this league")
	cmd.Flags().DurationVar(&lookahead, "lookahead", 0, "fixture window from now")
	return cmd
}
