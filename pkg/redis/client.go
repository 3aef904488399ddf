package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace      = "si"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

var errNotInitialized = errors.New("redis client not initialized")

// Deletes KEYS[1] only while it still holds ARGV[1].
const releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Increments KEYS[1] and starts its window on the first hit.
const countWindowScript = `local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// Claims KEYS[1] with ARGV[1] or returns whatever it already holds.
const claimScript = `if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	return ""
end
return redis.call("GET", KEYS[1]) or ""`

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Client holds the shared coordination state of API and worker instances:
// product locks, scheduler tick locks, idempotency records and request counters.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// LockStore is the owner-token lock surface used by the concurrency guard and
// the scheduler.
type LockStore interface {
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	LockKey(scope, id string) string
}

// IdempotencyStore backs replayable mutating requests.
type IdempotencyStore interface {
	Claim(ctx context.Context, key, marker string, ttl time.Duration) (string, bool, error)
	Store(ctx context.Context, key, value string, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
	IdempotencyKey(scope, id string) string
}

// RateLimitStore counts hits in a fixed window.
type RateLimitStore interface {
	CountWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// New dials Redis with the configured pool and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"redis_db": opts.DB, "pool_size": opts.PoolSize}), "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// AcquireLock sets key to owner unless another owner holds it.
func (c *Client) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, owner, ttl).Result()
}

// ReleaseLock deletes key if owner still holds it. A lock that expired and was
// taken by someone else is left alone and reported as false.
func (c *Client) ReleaseLock(ctx context.Context, key, owner string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	n, err := c.store.Eval(ctx, releaseLockScript, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountWindow increments the counter at key and returns the hits seen in the
// current window.
func (c *Client) CountWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	if window <= 0 {
		return 0, errors.New("rate limit window must be positive")
	}
	return c.store.Eval(ctx, countWindowScript, []string{key}, window.Milliseconds()).Int64()
}

// Claim stores marker at key when it is free and reports claimed=true.
// Otherwise it returns the value already held.
func (c *Client) Claim(ctx context.Context, key, marker string, ttl time.Duration) (string, bool, error) {
	if c.store == nil {
		return "", false, errNotInitialized
	}
	existing, err := c.store.Eval(ctx, claimScript, []string{key}, marker, ttl.Milliseconds()).Text()
	if err != nil {
		return "", false, err
	}
	return existing, existing == "", nil
}

// Store overwrites key with value.
func (c *Client) Store(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Forget removes key.
func (c *Client) Forget(ctx context.Context, key string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, key).Err()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey(rateLimitPrefix, scope)
}

func (c *Client) LockKey(scope, id string) string {
	return buildKey(lockPrefix, scope, id)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}
