package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/app"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/observability"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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
		fmt.Fprintln(os.Stderr, "load config:", err)
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

	container, err := app.New(ctx, cfg, logger, app.Options{Component: "api"})
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	srv, err := container.NewHTTPServer()
	if err != nil {
		logger.Error("build http server", "error", err)
		return 1
	}

	if err := serve(ctx, srv, logger); err != nil {
		logger.Error("http server failed", "error", err)
		return 1
	}
	return 0
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, logger *logging.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("http server stopped")
		return nil
	})
	return g.Wait()
}
