package observability

import (
	"context"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

const pprofStopTimeout = 5 * time.Second

// Start brings up logging, tracing and profiling for a binary. The returned shutdown flushes
// them in reverse order and is safe to call once.
func Start(cfg config.Config) (*logging.Logger, func(context.Context), error) {
	logger, shutdownLogger, err := InitLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	logging.SetDefault(logger)

	shutdownUptrace, err := InitUptrace(cfg, logger)
	if err != nil {
		_ = shutdownLogger(context.Background())
		return nil, nil, err
	}

	stopPyroscope, err := InitPyroscope(cfg, logger)
	if err != nil {
		_ = shutdownUptrace(context.Background())
		_ = shutdownLogger(context.Background())
		return nil, nil, err
	}

	pprofSrv, err := StartPprofServer(cfg, logger)
	if err != nil {
		_ = stopPyroscope()
		_ = shutdownUptrace(context.Background())
		_ = shutdownLogger(context.Background())
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) {
		if err := StopPprofServer(pprofSrv, logger, pprofStopTimeout); err != nil {
			logger.Warn("pprof shutdown failed", "error", err)
		}
		if err := stopPyroscope(); err != nil {
			logger.Warn("pyroscope shutdown failed", "error", err)
		}
		if err := shutdownUptrace(ctx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
		_ = shutdownLogger(ctx)
	}
	return logger, shutdown, nil
}
