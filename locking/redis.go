/*
redis.go - Redis-backed locks

For deployments where several processes share one booking store. Locks
expire after their ttl, so a crashed holder cannot stall a resource
forever.
*/
package locking

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
)

// acquireRetryInterval paces acquisition attempts against Redis.
const acquireRetryInterval = 100 * time.Millisecond

// acquireTimeout bounds how long Acquire waits for a contended key
// when the caller's context carries no deadline of its own.
const acquireTimeout = time.Minute

// Redis is a Locker backed by Redis.
type Redis struct {
	client *redislock.Client
}

// NewRedis wraps an existing Redis connection.
func NewRedis(redisClient *redis.Client) *Redis {
	return &Redis{client: redislock.New(redisClient)}
}

// Acquire obtains the key's lock, retrying while another holder has it.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
		defer cancel()
	}

	lock, err := r.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(acquireRetryInterval),
	})
	if err != nil {
		return nil, err
	}
	return &redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l *redisLock) Key() string { return l.lock.Key() }

func (l *redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return ErrNotHeld
	}
	return err
}
