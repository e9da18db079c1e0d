package observability

import (
	"runtime"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

// Sampling rates for the mutex and block profiles; both stay empty unless the runtime is told
// to record contention.
const (
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

// profilerConfig captures goroutine, mutex and block profiles next to CPU and heap: runs spend
// most of their time waiting on providers.
func profilerConfig(cfg config.Config) pyroscope.Config {
	name := cfg.PyroscopeAppName
	if name == "" {
		name = cfg.ServiceName
	}

	tags := map[string]string{"env": cfg.AppEnv, "service": cfg.ServiceName, "sport": cfg.PromptSport}
	if cfg.GrokModel != "" {
		tags["model"] = cfg.GrokModel
	}

	return pyroscope.Config{
		ApplicationName:   name,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags:              tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockDuration,
		},
	}
}

// InitPyroscope starts continuous profiling when enabled. The returned stop also turns
// contention sampling back off.
func InitPyroscope(cfg config.Config, logger *logging.Logger) (func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.PyroscopeEnabled {
		logger.Debug("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return func() error { return nil }, nil
	}

	pc := profilerConfig(cfg)
	prevMutex := runtime.SetMutexProfileFraction(mutexProfileFraction)
	runtime.SetBlockProfileRate(blockProfileRate)

	profiler, err := pyroscope.Start(pc)
	if err != nil {
		runtime.SetMutexProfileFraction(prevMutex)
		runtime.SetBlockProfileRate(0)
		return nil, err
	}

	logger.Info("pyroscope enabled", "server_address", pc.ServerAddress, "application", pc.ApplicationName)
	return func() error {
		err := profiler.Stop()
		runtime.SetMutexProfileFraction(prevMutex)
		runtime.SetBlockProfileRate(0)
		return err
	}, nil
}
