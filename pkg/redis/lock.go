package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the lock.
// Worker poll cycles treat it as "someone else's turn" and skip the cycle.
var ErrLockNotAcquired = errors.New("lock not acquired")

// releaseScript only deletes a lock we still own, so a lock that expired
// and was re-acquired elsewhere is never clobbered
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker provides distributed locking for worker poll cycles so only one
// instance claims jobs or sweeps expiries at a time
type Locker struct {
	client    *Client
	keyPrefix string
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// WithLock runs fn while holding the named lock. The TTL bounds how long a
// crashed holder can block other instances.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lockKey := l.keyPrefix + key
	lockValue := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		if err := l.release(ctx, lockKey, lockValue); err != nil {
			l.client.logger.WithContext(ctx).WithError(err).Errorf("Failed to release lock: %s", lockKey)
		}
	}()

	return fn()
}

func (l *Locker) release(ctx context.Context, lockKey string, lockValue string) error {
	_, err := releaseScript.Run(ctx, l.client.rdb, []string{lockKey}, lockValue).Int64()
	return err
}
