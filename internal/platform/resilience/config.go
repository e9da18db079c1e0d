package resilience

import "time"

// CircuitBreakerConfig is loaded per provider from <PROVIDER>_CIRCUIT_* variables.
type CircuitBreakerConfig struct {
	Enabled bool
	// FailureThreshold consecutive counted failures open the breaker.
	FailureThreshold int
	// OpenTimeout is how long an open breaker rejects calls before probing the provider again.
	OpenTimeout time.Duration
	// HalfOpenProbes calls are admitted while half-open; all must succeed to close.
	HalfOpenProbes int
}

// DefaultCircuitBreakerConfig suits scraped and metered providers: five straight transient
// failures pause the provider for half a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Enabled: true, FailureThreshold: 5, OpenTimeout: 30 * time.Second, HalfOpenProbes: 1}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	d := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenProbes < 1 {
		c.HalfOpenProbes = d.HalfOpenProbes
	}
	return c
}

// NewCircuitBreakerFromConfig returns nil when the breaker is disabled; a nil breaker admits
// every call.
func NewCircuitBreakerFromConfig(provider string, cfg CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return NewCircuitBreaker(provider, cfg, opts...)
}
