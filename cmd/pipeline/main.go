package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/interfaces/cli"
	"github.com/riskibarqy/player-risk-alerts/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	logger, shutdownObservability, err := observability.Start(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init observability:", err)
		return 1
	}
	defer shutdownObservability(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Env{
		Out: os.Stdout,
		Open: func(ctx context.Context, opts app.Options) (*app.Container, error) {
			opts.Component = "pipeline"
			return app.New(ctx, cfg, logger, opts)
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "✗", err)
		return 1
	}
	return 0
}
