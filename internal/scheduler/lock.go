package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultTickLockTTL = time.Hour

// TickLock makes a tick run on a single process instance.
type TickLock interface {
	Acquire(ctx context.Context, job string) (release func(ctx context.Context) error, ok bool, err error)
}

// LocalLock always grants the tick; used when one worker runs alone.
type LocalLock struct{}

func (LocalLock) Acquire(context.Context, string) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

type redisStore interface {
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
}

type lockKeyer interface {
	LockKey(scope, id string) string
}

// RedisLock implements TickLock with an owner-token key that expires after ttl.
type RedisLock struct {
	client redisStore
	keyFn  func(job string) string
	ttl    time.Duration
}

// NewRedisLock builds a Redis tick lock. When the client can namespace keys
// it is used; otherwise keys are "scheduler:<job>".
func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultTickLockTTL
	}
	keyFn := func(job string) string { return "scheduler:" + job }
	if k, ok := client.(lockKeyer); ok {
		keyFn = func(job string) string { return k.LockKey("scheduler", job) }
	}
	return &RedisLock{client: client, keyFn: keyFn, ttl: ttl}, nil
}

// Acquire claims the job's tick.
func (l *RedisLock) Acquire(ctx context.Context, job string) (func(context.Context) error, bool, error) {
	key := l.keyFn(job)
	owner := uuid.NewString()
	ok, err := l.client.AcquireLock(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire tick lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if _, err := l.client.ReleaseLock(ctx, key, owner); err != nil {
			return fmt.Errorf("release tick lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}
