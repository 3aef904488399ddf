package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/metrics"
)

// ErrInitializing is returned when Initialize is called while another call is in progress.
var ErrInitializing = errors.New("scheduler initialization already in progress")

// State is the lifecycle position of one scheduled job.
type State string

const (
	StateUnscheduled State = "unscheduled"
	StateScheduled   State = "scheduled"
	StateRunning     State = "running"
)

type entry struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
}

func (e *entry) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *entry) getState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Params configure the scheduler.
type Params struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     TickLock
	Metrics  *metrics.JobMetrics
}

// Scheduler owns one timer loop per registered job.
type Scheduler struct {
	logg     *logger.Logger
	registry *Registry
	lock     TickLock
	metrics  *metrics.JobMetrics
	now      func() time.Time

	mu           sync.Mutex
	entries      map[string]*entry
	initializing bool
}

// New builds an idle scheduler. Jobs start with Initialize.
func New(p Params) (*Scheduler, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	lock := p.Lock
	if lock == nil {
		lock = LocalLock{}
	}
	return &Scheduler{
		logg:     p.Logger,
		registry: p.Registry,
		lock:     lock,
		metrics:  p.Metrics,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}, nil
}

// Initialize schedules every registered job. An existing loop under the same
// name is stopped first, so repeated calls never double-schedule. Loops stop
// when ctx is canceled or StopAll is called.
func (s *Scheduler) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initializing {
		s.mu.Unlock()
		return ErrInitializing
	}
	s.initializing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.initializing = false
		s.mu.Unlock()
	}()

	for _, reg := range s.registry.Registrations() {
		name := reg.Job.Name()
		s.stop(name)

		loopCtx, cancel := context.WithCancel(ctx)
		e := &entry{cancel: cancel, done: make(chan struct{}), state: StateScheduled}
		s.mu.Lock()
		s.entries[name] = e
		s.mu.Unlock()

		go s.loop(loopCtx, reg, e)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"job":      name,
			"schedule": reg.Schedule.String(),
		}), "scheduler.job_scheduled")
	}
	return nil
}

// StopAll cancels every loop and waits for in-flight ticks to finish.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.stop(name)
	}
}

// State reports a job's lifecycle position.
func (s *Scheduler) State(name string) State {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return StateUnscheduled
	}
	return e.getState()
}

// RunNow executes one job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, reg := range s.registry.Registrations() {
		if reg.Job.Name() == name {
			return s.tick(ctx, reg.Job, nil)
		}
	}
	return fmt.Errorf("job %s not registered", name)
}

func (s *Scheduler) stop(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	delete(s.entries, name)
	s.mu.Unlock()
	if !ok {
		return
	}
	e.cancel()
	<-e.done
	e.setState(StateUnscheduled)
}

func (s *Scheduler) loop(ctx context.Context, reg Registration, e *entry) {
	defer close(e.done)
	defer e.setState(StateUnscheduled)

	timer := time.NewTimer(reg.Schedule.Next(s.now()))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		// A tick that has started runs to completion even if the loop is stopped.
		_ = s.tick(context.WithoutCancel(ctx), reg.Job, e)
		e.setState(StateScheduled)
		timer.Reset(reg.Schedule.Period())
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job, e *entry) error {
	name := job.Name()
	jobCtx := s.logg.WithJob(ctx, name)

	release, ok, err := s.lock.Acquire(jobCtx, name)
	if err != nil {
		s.logg.Error(jobCtx, "scheduler.lock_failed", err)
		s.metrics.Failed(name)
		return err
	}
	if !ok {
		s.logg.Info(jobCtx, "scheduler.tick_skipped")
		s.metrics.Skipped(name)
		return nil
	}
	defer func() {
		if relErr := release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "scheduler.lock_release_failed", relErr)
		}
	}()

	if e != nil {
		e.setState(StateRunning)
	}
	s.logg.Info(jobCtx, "scheduler.job_start")
	done := s.metrics.Started(name)
	start := time.Now()
	err = job.Run(jobCtx)
	done(err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "scheduler.job_failed", err)
		return err
	}
	s.logg.Info(jobCtx, "scheduler.job_completed")
	return nil
}
