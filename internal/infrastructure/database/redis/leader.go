// internal/infrastructure/database/redis/leader.go
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LeaderLock lets one dispatcher instance drain the outbox at a time
type LeaderLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewLeaderLock builds a lock on key held for at most ttl per dispatch round
func NewLeaderLock(rdb *redis.Client, key string, ttl time.Duration, logger logrus.FieldLogger) *LeaderLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderLock{
		locker: redislock.New(rdb),
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// TryAcquire obtains the lock without waiting. ok is false when another
// instance holds it.
func (l *LeaderLock) TryAcquire(ctx context.Context) (func(context.Context), bool, error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	release := func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.WithError(err).WithField("key", l.key).Warn("failed to release leader lock")
		}
	}
	return release, true, nil
}
