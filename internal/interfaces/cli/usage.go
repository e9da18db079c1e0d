package cli

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/spf13/cobra"
)

func newUsageCommand(s *session) *cobra.Command {
	var (
		runID string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token and call usage of a run, or list recent runs",
		Example: `  pipeline usage
  pipeline usage --run-id 2026_10_19_101500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.withContainer(cmd.Context(), app.Options{}, func(c *app.Container) error {
				if strings.TrimSpace(runID) == "" {
					runs, err := c.Runs.RecentRuns(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if s.globals.json {
						return s.print.json(runs)
					}
					if len(runs) == 0 {
						s.print.warning("no runs recorded usage yet")
						return nil
					}
					for _, id := range runs {
						fmt.Fprintln(s.env.Out, id)
					}
					return nil
				}

				report, err := c.Runs.Usage(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if s.globals.json {
					return s.print.json(report)
				}
				s.print.usage(report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run to report on")
	cmd.Flags().IntVar(&limit, "limit", 20, "recent runs to list when --run-id is empty")
	return cmd
}
