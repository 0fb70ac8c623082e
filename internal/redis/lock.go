package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// Locker guards the read-then-write critical sections of the booking engine.
// Series locks serialize collision checks and renumbering within one booking
// series; identity locks serialize find-or-create reconciliation for one
// patient natural key.
type Locker interface {
	WithSeriesLock(ctx context.Context, registrationNumber string, fn func(ctx context.Context) error) error
	WithIdentityLock(ctx context.Context, patientKey string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by per-key Redis SETNX entries.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisLocker) WithSeriesLock(ctx context.Context, registrationNumber string, fn func(ctx context.Context) error) error {
	return l.withLock(ctx, fmt.Sprintf("lock:series:%s", registrationNumber), fn)
}

func (l *redisLocker) WithIdentityLock(ctx context.Context, patientKey string, fn func(ctx context.Context) error) error {
	return l.withLock(ctx, fmt.Sprintf("lock:identity:%s", patientKey), fn)
}

func (l *redisLocker) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
