package cli

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/spf13/cobra"
)

func newAlertsCommand(s *session) *cobra.Command {
	var runID, fixtureID string
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts of a run or the active alerts of a fixture",
		Example: `  pipeline alerts --run-id 2026_10_19_101500
  pipeline alerts --fixture-id 4f1c2a9e0b7d3e55
  pipeline alerts ack 3e0d7a4c-1b2f-4c55-9a8e-0f6b7c1d2e3f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID, fixtureID = strings.TrimSpace(runID), strings.TrimSpace(fixtureID)
			if (runID == "") == (fixtureID == "") {
				return fmt.Errorf("%w: pass exactly one of --run-id or --fixture-id", usecase.ErrInvalidInput)
			}
			return s.withContainer(cmd.Context(), app.Options{}, func(c *app.Container) error {
				var (
					items []alert.Alert
					err   error
				)
				if runID != "" {
					items, err = c.Alerts.ListByRun(cmd.Context(), runID)
				} else {
					items, err = c.Alerts.ListActiveByFixture(cmd.Context(), fixtureID)
				}
				if err != nil {
					return err
				}
				if s.globals.json {
					return s.print.json(items)
				}
				s.print.alerts(items)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "alerts raised by this run")
	cmd.Flags().StringVar(&fixtureID, "fixture-id", "", "active alerts of this fixture")
	cmd.AddCommand(newAlertAckCommand(s))
	return cmd
}

func newAlertAckCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withContainer(cmd.Context(), app.Options{}, func(c *app.Container) error {
				if err := c.Alerts.Acknowledge(cmd.Context(), args[0]); err != nil {
					return err
				}
				s.print.success("alert %s acknowledged", args[0])
				return nil
			})
		},
	}
}
