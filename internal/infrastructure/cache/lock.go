package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"
)

const walletLockPrefix = "hub_bridge:lock:wallet:"

// ErrLockNotObtained is returned when another instance holds the lock past the wait.
var ErrLockNotObtained = errors.New("wallet provisioning lock not obtained")

// UserLocker serializes wallet provisioning per user across instances.
type UserLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewUserLocker creates a locker with the given hold ttl and linear retry interval.
func NewUserLocker(redis RedisClient, ttl, retry time.Duration, logger *zap.Logger) *UserLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 250 * time.Millisecond
	}
	return &UserLocker{
		locker: redislock.New(redis.Client()),
		ttl:    ttl,
		retry:  retry,
		logger: logger,
	}
}

// Acquire blocks until the lock is held, the context ends, or the ttl passes without a deadline.
func (l *UserLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, walletLockPrefix+userID, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w for user %s", ErrLockNotObtained, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain wallet lock: %w", err)
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release wallet lock", zap.String("userID", userID), zap.Error(err))
		}
	}, nil
}
