package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"distledger/internal/core/apperror"
	"distledger/internal/domain/snapshot"
	"distledger/pkg/logger"
)

// DefaultLockTTL must exceed the longest conversion run.
const DefaultLockTTL = 2 * time.Minute

// RedisLocker implements snapshot.Locker across server and CLI processes.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

var _ snapshot.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker. ttl <= 0 selects DefaultLockTTL.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// Lock obtains key without retrying; a held key yields RESOURCE_LOCKED.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, "distledger:lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperror.NewLocked(key)
	}
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "conversion lock expired before release", "key", key)
			return nil
		}
		return err
	}, nil
}
