package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "cancelled", err: crerr.Wrap(context.Canceled, "research"), want: ReasonCancelled},
		{name: "team", err: fmt.Errorf("%w: Arsenal", ErrTeamNotFound), want: ReasonTeamNotFound},
		{name: "unverified team", err: fmt.Errorf("%w: x", errTeamUnverified), want: ReasonTeamNotFound},
		{name: "rate limit", err: &RateLimitError{Provider: "grok"}, want: ReasonRateLimited},
		{name: "persistence", err: crerr.Mark(crerr.New("tx aborted"), ErrPersistence), want: ReasonPersistence},
		{name: "deadline", err: crerr.Wrap(context.DeadlineExceeded, "call"), want: ReasonTransient},
		{name: "malformed", err: crerr.Wrapf(fmt.Errorf("%w: no json", ErrMalformedOutput), "shark stage"), want: ReasonMalformedOutput},
		{name: "unknown", err: crerr.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range tests {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	if !IsTransient(crerr.Wrap(&RateLimitError{Provider: "grok"}, "call")) {
		t.Fatalf("expected rate limit to be transient")
	}
	if IsTransient(fmt.Errorf("%w: bad json", ErrMalformedOutput)) {
		t.Fatalf("expected malformed output to be permanent")
	}
	if IsTransient(crerr.Wrap(context.Canceled, "run")) {
		t.Fatalf("expected cancellation to be permanent")
	}
}

func TestRetryAfterHint(t *testing.T) {
	t.Parallel()

	err := crerr.Wrap(&RateLimitError{Provider: "grok", RetryAfter: 3 * time.Second}, "shark")
	delay, ok := RetryAfterHint(err)
	if !ok || delay != 3*time.Second {
		t.Fatalf("expected 3s hint, got %v %v", delay, ok)
	}
	if _, ok := RetryAfterHint(ErrTransientNetwork); ok {
		t.Fatalf("expected no hint for plain transient error")
	}
}
