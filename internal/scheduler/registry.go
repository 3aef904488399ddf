// Package scheduler runs the inventory background jobs on fixed and
// clock-aligned intervals.
package scheduler

import (
	"context"
	"fmt"
)

// Job is one named unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job.
type JobFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewJobFunc adapts fn to the Job interface.
func NewJobFunc(name string, fn func(ctx context.Context) error) JobFunc {
	return JobFunc{name: name, fn: fn}
}

func (j JobFunc) Name() string                  { return j.name }
func (j JobFunc) Run(ctx context.Context) error { return j.fn(ctx) }

// Registration pairs a job with its schedule.
type Registration struct {
	Job      Job
	Schedule Schedule
}

// Registry tracks registered jobs in the order they were added.
type Registry struct {
	entries []Registration
}

// NewRegistry builds a registry preloaded with the provided registrations.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{}
	for _, reg := range regs {
		if err := r.Register(reg.Job, reg.Schedule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a job. Names must be unique.
func (r *Registry) Register(job Job, schedule Schedule) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	if schedule == nil {
		return fmt.Errorf("schedule required for job %s", job.Name())
	}
	for _, existing := range r.entries {
		if existing.Job.Name() == job.Name() {
			return fmt.Errorf("job %s already registered", job.Name())
		}
	}
	r.entries = append(r.entries, Registration{Job: job, Schedule: schedule})
	return nil
}

// Registrations returns a copy of the registered jobs.
func (r *Registry) Registrations() []Registration {
	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}
