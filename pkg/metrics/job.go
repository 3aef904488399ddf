package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job run outcomes.
const (
	JobSucceeded = "success"
	JobFailed    = "failure"
	JobSkipped   = "skipped"
)

// JobMetrics records scheduler ticks per job.
type JobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// NewJobMetrics registers the job metrics on reg. A nil registerer yields a
// no-op collector.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_job_runs_total",
			Help: "Scheduler ticks by job and outcome. Skipped ticks ran on another instance.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "inventory_job_duration_seconds",
			Help: "Duration of scheduled inventory jobs.",
			// Sweeps over the whole catalog run for minutes.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_job_in_flight",
			Help: "Jobs currently running on this instance.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.inFlight, m.lastSuccess)
	return m
}

// Started marks job as running and returns the func that records its end.
func (m *JobMetrics) Started(job string) func(err error) {
	job = normalizeLabel(job)
	start := time.Now()
	if m != nil && m.inFlight != nil {
		m.inFlight.WithLabelValues(job).Inc()
	}
	return func(err error) {
		if m == nil || m.runs == nil {
			return
		}
		m.inFlight.WithLabelValues(job).Dec()
		m.duration.WithLabelValues(job).Observe(time.Since(start).Seconds())
		if err != nil {
			m.runs.WithLabelValues(job, JobFailed).Inc()
			return
		}
		m.runs.WithLabelValues(job, JobSucceeded).Inc()
		m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}

// Skipped counts a tick that did not run here.
func (m *JobMetrics) Skipped(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), JobSkipped).Inc()
}

// Failed counts a tick that could not start, e.g. when the lock store is down.
func (m *JobMetrics) Failed(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), JobFailed).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
