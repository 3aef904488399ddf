package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/angelmondragon/smart-inventory/pkg/redis"
)

const (
	lockScope      = "inventory"
	defaultLockTTL = 30 * time.Second
)

// MemoryLocker is an in-process set of busy keys.
type MemoryLocker struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewMemoryLocker returns an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{busy: make(map[string]struct{})}
}

// TryLock claims key if no other caller holds it.
func (l *MemoryLocker) TryLock(_ context.Context, key string) (ReleaseFunc, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.busy[key]; held {
		return nil, false, nil
	}
	l.busy[key] = struct{}{}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, key)
			l.mu.Unlock()
		})
		return nil
	}
	return release, true, nil
}

// Held reports whether key is currently claimed.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.busy[key]
	return held
}

// RedisLocker claims keys across process instances with SETNX and a TTL.
type RedisLocker struct {
	store pkgredis.LockStore
	ttl   time.Duration
}

// NewRedisLocker constructs a Redis-backed locker. The TTL bounds how long a
// crashed holder can keep a product locked.
func NewRedisLocker(store pkgredis.LockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis store required for locker")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

// TryLock claims key with a random owner token. Release only removes the
// lock while this caller still owns it.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (ReleaseFunc, bool, error) {
	redisKey := l.store.LockKey(lockScope, key)
	owner := uuid.NewString()

	ok, err := l.store.AcquireLock(ctx, redisKey, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire product lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if _, err := l.store.ReleaseLock(ctx, redisKey, owner); err != nil {
			return fmt.Errorf("release product lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}
