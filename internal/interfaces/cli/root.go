// Package cli is the operator command line for the alert pipeline.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/spf13/cobra"
)

const closeTimeout = 15 * time.Second

// Opener builds the service container for one command invocation.
type Opener func(ctx context.Context, opts app.Options) (*app.Container, error)

type Env struct {
	Out  io.Writer
	Open Opener
	Now  func() time.Time
}

// ExitError carries a non-zero exit status for a command that otherwise finished.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

type globalFlags struct {
	inMemory     bool
	defaultsPath string
	json         bool
}

type session struct {
	env     Env
	globals *globalFlags
	print   *printer
}

func NewRootCommand(env Env) *cobra.Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Now == nil {
		env.Now = time.Now
	}

	s := &session{env: env, globals: &globalFlags{}, print: newPrinter(env.Out)}
	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Per-match player risk alerts",
		Long:          "Lists upcoming fixtures, keeps team rosters current and runs the research, analyst and\nshark stages to raise player risk alerts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Out)

	flags := root.PersistentFlags()
	flags.BoolVar(&s.globals.inMemory, "in-memory", false, "keep every store in process memory")
	flags.StringVar(&s.globals.defaultsPath, "defaults", "", "pipeline defaults file (yaml, json or toml)")
	flags.BoolVar(&s.globals.json, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newRunCommand(s),
		newFixturesCommand(s),
		newRosterCommand(s),
		newUsageCommand(s),
		newAlertsCommand(s),
	)
	return root
}

func (s *session) defaults() (config.PipelineDefaults, error) {
	return config.LoadPipelineDefaults(s.globals.defaultsPath)
}

// withContainer opens the container, runs fn and closes the container, flushing usage records
// even when fn fails.
func (s *session) withContainer(ctx context.Context, opts app.Options, fn func(*app.Container) error) (err error) {
	opts.InMemory = opts.InMemory || s.globals.inMemory
	c, err := s.env.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if closeErr := c.Close(closeCtx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(c)
}
