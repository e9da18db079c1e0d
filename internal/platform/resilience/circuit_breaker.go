package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned by Allow while a provider is cooling down.
type OpenError struct {
	Provider string
	RetryIn  time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryIn > 0 {
		return fmt.Sprintf("%s circuit open, retry in %s", e.Provider, e.RetryIn.Round(time.Second))
	}
	return e.Provider + " circuit open, probe in flight"
}

func (e *OpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// BreakerOption customises a provider breaker.
type BreakerOption func(*CircuitBreaker)

// CountFailuresWhen limits which errors trip the breaker. By default every error counts;
// providers pass their transient check so a 404 or a parse failure never opens the circuit.
func CountFailuresWhen(fn func(error) bool) BreakerOption {
	return func(b *CircuitBreaker) {
		if fn != nil {
			b.countable = fn
		}
	}
}

// OnStateChange is called after every transition, outside the breaker lock.
func OnStateChange(fn func(provider string, from, to CircuitState)) BreakerOption {
	return func(b *CircuitBreaker) {
		b.onChange = fn
	}
}

// LogStateChanges logs opening at warn and recovery at info.
func LogStateChanges(logger *logging.Logger) BreakerOption {
	if logger == nil {
		logger = logging.Default()
	}
	return OnStateChange(func(provider string, from, to CircuitState) {
		if to == CircuitStateOpen {
			logger.Warn("provider circuit opened", "provider", provider, "from", from)
			return
		}
		logger.Info("provider circuit state changed", "provider", provider, "from", from, "to", to)
	})
}

// CircuitBreaker guards one provider. A nil breaker allows every call.
type CircuitBreaker struct {
	mu sync.Mutex

	provider         string
	failureThreshold int
	openTimeout      time.Duration
	halfOpenProbes   int
	countable        func(error) bool
	onChange         func(provider string, from, to CircuitState)
	now              func() time.Time

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	halfOpenSuccesses   int
}

type transition struct {
	from, to CircuitState
}

func NewCircuitBreaker(provider string, cfg CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	cfg = cfg.withDefaults()
	b := &CircuitBreaker{
		provider:         provider,
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		halfOpenProbes:   cfg.HalfOpenProbes,
		countable:        func(err error) bool { return err != nil },
		now:              time.Now,
		state:            CircuitStateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CircuitBreaker) Provider() string {
	if b == nil {
		return ""
	}
	return b.provider
}

// Allow admits a call or returns an *OpenError. An admitted call must be followed by Record.
func (b *CircuitBreaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	var changed []transition
	defer func() {
		b.mu.Unlock()
		b.notify(changed)
	}()

	if b.state == CircuitStateOpen {
		if wait := b.openTimeout - b.now().Sub(b.openedAt); wait > 0 {
			return &OpenError{Provider: b.provider, RetryIn: wait}
		}
		changed = append(changed, b.moveTo(CircuitStateHalfOpen))
	}
	if b.state == CircuitStateHalfOpen {
		if b.halfOpenInFlight >= b.halfOpenProbes {
			return &OpenError{Provider: b.provider}
		}
		b.halfOpenInFlight++
	}
	return nil
}

// Record feeds the outcome of an admitted call back into the breaker. Errors the breaker was
// told not to count are treated as successes: the provider answered.
func (b *CircuitBreaker) Record(err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	var changed []transition
	defer func() {
		b.mu.Unlock()
		b.notify(changed)
	}()

	failed := err != nil && b.countable(err)
	switch b.state {
	case CircuitStateClosed:
		if !failed {
			b.consecutiveFailures = 0
			return
		}
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			changed = append(changed, b.moveTo(CircuitStateOpen))
		}
	case CircuitStateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		if failed {
			changed = append(changed, b.moveTo(CircuitStateOpen))
			return
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.halfOpenProbes && b.halfOpenInFlight == 0 {
			changed = append(changed, b.moveTo(CircuitStateClosed))
		}
	case CircuitStateOpen:
		if failed {
			b.openedAt = b.now()
		}
	}
}

// Guard runs fn through the breaker.
func Guard[T any](b *CircuitBreaker, fn func() (T, error)) (T, error) {
	if err := b.Allow(); err != nil {
		var zero T
		return zero, err
	}
	out, err := fn()
	b.Record(err)
	return out, err
}

func (b *CircuitBreaker) State() CircuitState {
	if b == nil {
		return CircuitStateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// moveTo must be called with mu held.
func (b *CircuitBreaker) moveTo(to CircuitState) transition {
	t := transition{from: b.state, to: to}
	b.state = to
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0
	switch to {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}
	}
	return t
}

func (b *CircuitBreaker) notify(changed []transition) {
	if b.onChange == nil {
		return
	}
	for _, t := range changed {
		b.onChange(b.provider, t.from, t.to)
	}
}
