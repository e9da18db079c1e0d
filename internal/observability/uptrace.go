package observability

import (
	"context"
	"strings"

	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// uptraceDisabledReason returns why export is off, or "" when it should run.
func uptraceDisabledReason(cfg config.Config) string {
	switch {
	case !cfg.UptraceEnabled:
		return "UPTRACE_ENABLED=false"
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		return "UPTRACE_DSN empty"
	default:
		return ""
	}
}

// pipelineResource describes what this process scores, so traces from differently
// configured deployments can be told apart.
func pipelineResource(cfg config.Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("pipeline.sport", cfg.PromptSport),
		attribute.String("pipeline.alert_threshold", cfg.AlertThreshold),
	}
	if cfg.GrokModel != "" {
		attrs = append(attrs, attribute.String("pipeline.reasoning_model", cfg.GrokModel))
	}
	return attrs
}

// InitUptrace installs the global tracer and log providers. Pipeline runs and API requests
// share one service name and are separated by span names.
func InitUptrace(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if reason := uptraceDisabledReason(cfg); reason != "" {
		logging.SetMirror(nil)
		logger.Debug("uptrace disabled", "reason", reason)
		return func(context.Context) error { return nil }, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(pipelineResource(cfg)...),
		uptrace.WithLoggingEnabled(cfg.UptraceLogsEnabled),
	)
	var mirror logging.MirrorFunc
	if cfg.UptraceLogsEnabled {
		mirror = newUptraceLogMirror(cfg.ServiceVersion)
	}
	logging.SetMirror(mirror)

	logger.Info("uptrace enabled",
		"service_name", cfg.ServiceName,
		"environment", cfg.AppEnv,
		"sport", cfg.PromptSport,
		"logs_enabled", cfg.UptraceLogsEnabled,
	)

	return func(ctx context.Context) error {
		logging.SetMirror(nil)
		return uptrace.Shutdown(ctx)
	}, nil
}
