package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	ErrTransientNetwork  = crerr.New("transient network failure")
	ErrRateLimited       = crerr.New("rate limited")
	ErrTeamNotFound      = crerr.New("team not found")
	ErrDataNotFound      = crerr.New("data not found")
	ErrScrapeParse       = crerr.New("scrape parse failure")
	ErrMalformedOutput   = crerr.New("malformed reasoning output")
	ErrReasoningService  = crerr.New("reasoning service failure")
	ErrPersistence       = crerr.New("persistence failure")
	ErrSourceUnavailable = crerr.New("fixture source unavailable")
)

// RateLimitError carries the provider-specified delay, when one was sent.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return e.Provider + " rate limited"
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterHint extracts the provider delay from err.
func RetryAfterHint(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if crerr.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if crerr.Is(err, context.Canceled) {
		return false
	}
	return crerr.Is(err, ErrTransientNetwork) ||
		crerr.Is(err, ErrRateLimited) ||
		crerr.Is(err, ErrReasoningService) ||
		crerr.Is(err, context.DeadlineExceeded)
}

// Reason codes reported in run summaries.
const (
	ReasonCancelled         = "cancelled"
	ReasonTeamNotFound      = "team_not_found"
	ReasonDataNotFound      = "data_not_found"
	ReasonScrapeParse       = "scrape_parse_error"
	ReasonMalformedOutput   = "malformed_output"
	ReasonRateLimited       = "rate_limited"
	ReasonTransient         = "transient_network_error"
	ReasonReasoningService  = "reasoning_service_error"
	ReasonPersistence       = "persistence_error"
	ReasonSourceUnavailable = "source_unavailable"
	ReasonInvalidInput      = "invalid_input"
	ReasonUnavailable       = "dependency_unavailable"
	ReasonUnknown           = "unknown"
)

// Classify maps err to a summary reason code.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case crerr.Is(err, context.Canceled):
		return ReasonCancelled
	case crerr.Is(err, ErrTeamNotFound):
		return ReasonTeamNotFound
	case crerr.Is(err, ErrDataNotFound), crerr.Is(err, ErrNotFound):
		return ReasonDataNotFound
	case crerr.Is(err, ErrScrapeParse):
		return ReasonScrapeParse
	case crerr.Is(err, ErrMalformedOutput):
		return ReasonMalformedOutput
	case crerr.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case crerr.Is(err, ErrPersistence):
		return ReasonPersistence
	case crerr.Is(err, ErrSourceUnavailable):
		return ReasonSourceUnavailable
	case crerr.Is(err, ErrReasoningService):
		return ReasonReasoningService
	case crerr.Is(err, ErrTransientNetwork), crerr.Is(err, context.DeadlineExceeded):
		return ReasonTransient
	case crerr.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case crerr.Is(err, ErrDependencyUnavailable):
		return ReasonUnavailable
	default:
		return ReasonUnknown
	}
}
