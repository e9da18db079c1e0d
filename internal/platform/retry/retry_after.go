package retry

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter caps a parsed Retry-After.
const MaxRetryAfter = time.Hour

// ParseRetryAfter reads a Retry-After header value in either form: a delay in seconds
// (fractions allowed) or an HTTP-date, measured from now. It reports false for an empty,
// malformed or already elapsed value.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || secs <= 0 {
			return 0, false
		}
		if secs >= MaxRetryAfter.Seconds() {
			return MaxRetryAfter, true
		}
		d = time.Duration(secs * float64(time.Second))
	} else {
		at, err := http.ParseTime(value)
		if err != nil {
			return 0, false
		}
		d = at.Sub(now)
	}

	if d <= 0 {
		return 0, false
	}
	return min(d, MaxRetryAfter), true
}
