package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Attempt is one try of a retried operation. attempt is 1-based.
type Attempt func(ctx context.Context, attempt int) error

// Retrier runs an operation under a Policy as an explicit bounded loop.
type Retrier struct {
	policy  Policy
	sleep   Sleeper
	logger  *zap.Logger
	onRetry func(attempt int, err error, delay time.Duration)
}

// NewRetrier creates a new retrier and panics on an invalid policy.
func NewRetrier(policy Policy, logger *zap.Logger) *Retrier {
	r, err := New(policy, logger)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// New creates a retrier, rejecting an invalid policy.
func New(policy Policy, logger *zap.Logger) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retrier{
		policy: policy,
		sleep:  ContextSleep,
		logger: logger,
	}, nil
}

// WithSleeper replaces the wait function, used by tests to record delays.
func (r *Retrier) WithSleeper(s Sleeper) *Retrier {
	if s != nil {
		r.sleep = s
	}
	return r
}

// OnRetry registers a hook called before each wait.
func (r *Retrier) OnRetry(fn func(attempt int, err error, delay time.Duration)) *Retrier {
	r.onRetry = fn
	return r
}

// Attempts is the maximum number of tries.
func (r *Retrier) Attempts() int {
	return r.policy.MaxAttempts
}

// Do executes op until it succeeds, returns a non-retryable error, or the attempt budget is spent.
// The returned int is the number of attempts made.
func (r *Retrier) Do(ctx context.Context, op Attempt) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retries",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", r.policy.MaxAttempts))
			}
			return attempt, nil
		}

		if r.policy.RetryableFunc != nil && !r.policy.RetryableFunc(lastErr) {
			r.logger.Debug("Error is not retryable",
				zap.Error(lastErr),
				zap.Int("attempt", attempt))
			return attempt, lastErr
		}

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("Retrying operation",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("backoff", delay))
		if r.onRetry != nil {
			r.onRetry(attempt, lastErr, delay)
		}

		if err := r.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}

	r.logger.Warn("Max retries exceeded",
		zap.Error(lastErr),
		zap.Int("attempts", r.policy.MaxAttempts))
	return r.policy.MaxAttempts, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// Poll calls check up to policy.MaxAttempts times, sleeping policy.Interval between calls.
// check reports done=true to stop successfully; a non-nil error stops immediately and is returned as is.
// Exhausting the budget returns ErrPollExhausted.
func Poll(ctx context.Context, policy PollPolicy, sleep Sleeper, check func(ctx context.Context, attempt int) (bool, error)) (int, error) {
	if policy.MaxAttempts <= 0 {
		return 0, fmt.Errorf("poll attempts must be positive, got %d", policy.MaxAttempts)
	}
	if sleep == nil {
		sleep = ContextSleep
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		done, err := check(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}

		if attempt < policy.MaxAttempts {
			if err := sleep(ctx, policy.Interval); err != nil {
				return attempt, err
			}
		}
	}

	return policy.MaxAttempts, ErrPollExhausted
}
