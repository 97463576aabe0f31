package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMaxRetriesExceeded wraps the last error once every attempt in a policy has failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrPollExhausted is returned when a poll loop runs out of attempts without finishing.
	ErrPollExhausted = errors.New("poll attempts exhausted")
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy is a bounded retry schedule driven by a backoff table.
// After failed attempt n the retrier waits Backoff[n-1] (the last entry repeats when the table is shorter
// than MaxAttempts). No wait follows the final attempt.
type Policy struct {
	MaxAttempts   int
	Backoff       []time.Duration
	RetryableFunc func(error) bool
}

// NewTablePolicy returns a policy with one attempt per backoff entry.
func NewTablePolicy(backoff ...time.Duration) Policy {
	return Policy{MaxAttempts: len(backoff), Backoff: backoff}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", p.MaxAttempts)
	}
	if p.MaxAttempts > 1 && len(p.Backoff) == 0 {
		return fmt.Errorf("backoff table is required when retrying")
	}
	for i, d := range p.Backoff {
		if d < 0 {
			return fmt.Errorf("backoff[%d] is negative", i)
		}
	}
	return nil
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt <= 0 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

// PollPolicy is a fixed-interval poll budget.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Total is the worst-case time spent sleeping.
func (p PollPolicy) Total() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Interval
}
