package guard

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 200 * time.Millisecond
)

// ErrLockUnavailable is matched by every exhausted acquisition error.
var ErrLockUnavailable = pkgerrors.New(pkgerrors.CodeLockUnavailable, "inventory lock unavailable")

// ReleaseFunc frees a lock previously claimed through TryLock.
type ReleaseFunc func(ctx context.Context) error

// Locker claims advisory per-key locks without blocking.
type Locker interface {
	TryLock(ctx context.Context, key string) (ReleaseFunc, bool, error)
}

// Params configures a Guard.
type Params struct {
	Locker     Locker
	Logger     *logger.Logger
	Metrics    *metrics.InventoryMetrics
	MaxRetries int
	RetryDelay time.Duration
}

// Guard serializes read-compute-write sequences per product.
type Guard struct {
	locker     Locker
	logg       *logger.Logger
	metrics    *metrics.InventoryMetrics
	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// New constructs a Guard with the supplied locker.
func New(p Params) (*Guard, error) {
	if p.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := p.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Guard{
		locker:     p.Locker,
		logg:       p.Logger,
		metrics:    p.Metrics,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      sleepContext,
	}, nil
}

// Option overrides the retry policy of a single WithLock call.
type Option func(*lockOptions)

type lockOptions struct {
	maxRetries int
	retryDelay time.Duration
}

// WithRetries overrides the number of acquisition attempts.
func WithRetries(n int) Option {
	return func(o *lockOptions) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelay overrides the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *lockOptions) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithLock claims key, runs fn and releases the key whatever fn returns.
// Contention is retried up to the configured attempts before failing with
// a LOCK_UNAVAILABLE error naming the key.
func (g *Guard) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error, opts ...Option) (err error) {
	o := lockOptions{maxRetries: g.maxRetries, retryDelay: g.retryDelay}
	for _, opt := range opts {
		opt(&o)
	}

	release, err := g.acquire(ctx, key, o)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			g.logg.Warn(g.logg.WithFields(ctx, map[string]any{"lock_key": key, "error": relErr.Error()}), "guard.release_failed")
		}
	}()

	return fn(ctx)
}

func (g *Guard) acquire(ctx context.Context, key string, o lockOptions) (ReleaseFunc, error) {
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		release, ok, err := g.locker.TryLock(ctx, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim inventory lock")
		}
		if ok {
			g.metrics.IncGuard(metrics.GuardAcquired)
			return release, nil
		}

		g.metrics.IncGuard(metrics.GuardContended)
		if attempt == o.maxRetries {
			break
		}
		if err := g.sleep(ctx, o.retryDelay); err != nil {
			return nil, err
		}
	}

	g.metrics.IncGuard(metrics.GuardExhausted)
	g.logg.Warn(g.logg.WithFields(ctx, map[string]any{"lock_key": key, "attempts": o.maxRetries}), "guard.exhausted")
	return nil, pkgerrors.Wrap(
		pkgerrors.CodeLockUnavailable,
		ErrLockUnavailable,
		fmt.Sprintf("failed to acquire inventory lock for product %s after %d attempts", key, o.maxRetries),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
