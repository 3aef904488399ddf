package guard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/smart-inventory/pkg/errors"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
)

func newTestGuard(t *testing.T, locker Locker) (*Guard, *[]time.Duration) {
	t.Helper()
	g, err := New(Params{
		Locker: locker,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	var sleeps []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return g, &sleeps
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatalf("expected missing locker to fail")
	}
	if _, err := New(Params{Locker: NewMemoryLocker()}); err == nil {
		t.Fatalf("expected missing logger to fail")
	}
}

func TestWithLockRunsAndReleases(t *testing.T) {
	locker := NewMemoryLocker()
	g, _ := newTestGuard(t, locker)

	ran := false
	err := g.WithLock(context.Background(), "p-1", func(context.Context) error {
		ran = true
		if !locker.Held("p-1") {
			t.Fatalf("expected key to be held inside the operation")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatalf("operation did not run")
	}
	if locker.Held("p-1") {
		t.Fatalf("expected key to be released")
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker := NewMemoryLocker()
	g, _ := newTestGuard(t, locker)

	opErr := errors.New("boom")
	err := g.WithLock(context.Background(), "p-1", func(context.Context) error { return opErr })
	if !errors.Is(err, opErr) {
		t.Fatalf("expected operation error, got %v", err)
	}
	if locker.Held("p-1") {
		t.Fatalf("expected key to be released after failure")
	}
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	locker := NewMemoryLocker()
	g, _ := newTestGuard(t, locker)

	func() {
		defer func() { _ = recover() }()
		_ = g.WithLock(context.Background(), "p-1", func(context.Context) error { panic("boom") })
	}()
	if locker.Held("p-1") {
		t.Fatalf("expected key to be released after panic")
	}
}

func TestWithLockExhaustsRetries(t *testing.T) {
	locker := NewMemoryLocker()
	release, ok, _ := locker.TryLock(context.Background(), "p-1")
	if !ok {
		t.Fatalf("setup lock failed")
	}
	defer release(context.Background())

	g, sleeps := newTestGuard(t, locker)

	ran := false
	err := g.WithLock(context.Background(), "p-1", func(context.Context) error {
		ran = true
		return nil
	})
	if ran {
		t.Fatalf("operation must not run without the lock")
	}
	if !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("expected ErrLockUnavailable, got %v", err)
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeLockUnavailable) {
		t.Fatalf("expected lock unavailable code, got %v", err)
	}
	if !strings.Contains(err.Error(), "product p-1 after 5 attempts") {
		t.Fatalf("expected message naming the product, got %q", err.Error())
	}
	if len(*sleeps) != DefaultMaxRetries-1 {
		t.Fatalf("expected %d pauses, got %d", DefaultMaxRetries-1, len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != DefaultRetryDelay {
			t.Fatalf("expected %v pause, got %v", DefaultRetryDelay, d)
		}
	}
}

func TestWithLockAcquiresAfterContention(t *testing.T) {
	locker := NewMemoryLocker()
	release, _, _ := locker.TryLock(context.Background(), "p-1")

	g, sleeps := newTestGuard(t, locker)
	g.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		_ = release(context.Background())
		return nil
	}

	err := g.WithLock(context.Background(), "p-1", func(context.Context) error { return nil }, WithRetries(2), WithRetryDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Millisecond {
		t.Fatalf("unexpected pauses %v", *sleeps)
	}
}

func TestWithLockStopsOnContextCancel(t *testing.T) {
	locker := NewMemoryLocker()
	release, _, _ := locker.TryLock(context.Background(), "p-1")
	defer release(context.Background())

	g, err := New(Params{Locker: locker, Logger: logger.New(logger.Options{Output: io.Discard}), RetryDelay: time.Hour})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = g.WithLock(ctx, "p-1", func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestWithLockSerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()
	g, err := New(Params{Locker: locker, Logger: logger.New(logger.Options{Output: io.Discard}), MaxRetries: 1000, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	var inside int32
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.WithLock(context.Background(), "p-1", func(context.Context) error {
				if atomic.AddInt32(&inside, 1) != 1 {
					t.Errorf("two holders inside the critical section")
				}
				counter++
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if counter != 8 {
		t.Fatalf("expected 8 increments, got %d", counter)
	}
}
