package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs, printing and the
// offline sales pipeline.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	prints    *prometheus.CounterVec
	syncs     *prometheus.CounterVec
	checkouts *prometheus.CounterVec
	pending   prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObservePrint counts a print dispatch by outcome (confirmed, ambiguous,
// failed, staging_error).
func (m *Metrics) ObservePrint(outcome string) {
	if m == nil || outcome == "" {
		return
	}
	m.prints.WithLabelValues(outcome).Inc()
}

// ObserveSync counts reconciled sales by result (synced, failed).
func (m *Metrics) ObserveSync(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.syncs.WithLabelValues(result).Add(float64(count))
}

// ObserveCheckout counts finalized sales by the route they took (online,
// offline, turbo, fallback).
func (m *Metrics) ObserveCheckout(path string) {
	if m == nil || path == "" {
		return
	}
	m.checkouts.WithLabelValues(path).Inc()
}

// SetPending records the current size of the offline queue.
func (m *Metrics) SetPending(count int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	prints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_print_dispatch_total",
		Help: "Print dispatches grouped by outcome.",
	}, []string{"outcome"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_offline_sales_reconciled_total",
		Help: "Offline sales submitted by the reconciler grouped by result.",
	}, []string{"result"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Finalized sales grouped by the route they took.",
	}, []string{"path"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_offline_sales_pending",
		Help: "Sales waiting in the offline queue.",
	})
	registerer.MustRegister(runs, failures, duration, prints, syncs, checkouts, pending)
	return &Metrics{
		runs:      runs,
		failures:  failures,
		duration:  duration,
		prints:    prints,
		syncs:     syncs,
		checkouts: checkouts,
		pending:   pending,
	}
}
