// Package metrics exposes media-mirror run metrics in Prometheus format.
//
// A Collector owns its own registry so that several runs in one process
// (watch mode) accumulate into the same series. Every method is safe on a
// nil *Collector, which disables metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	jobsAdmitted     prometheus.Counter
	alreadyConverted prometheus.Counter
	jobsFinished     *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobsInFlight     prometheus.Gauge
	encodesActive    prometheus.Gauge

	reconcileDeleted  prometheus.Counter
	reconcileFailures prometheus.Counter
	reconcilePasses   prometheus.Counter

	watchdogOverruns prometheus.Counter
	runs             prometheus.Counter
	runDuration      prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_jobs_admitted_total",
			Help: "Jobs created by admission",
		}),
		alreadyConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_sources_already_converted_total",
			Help: "Source files skipped because their destination existed",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mirror_jobs_finished_total",
			Help: "Finished jobs by status and action",
		}, []string{"status", "action"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirror_job_duration_seconds",
			Help:    "Job wall time including the stability wait",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"action"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mirror_jobs_in_flight",
			Help: "Jobs submitted and not yet finished",
		}),
		encodesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mirror_encode_slots_in_use",
			Help: "Jobs currently holding an encode slot",
		}),
		reconcileDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_reconcile_deleted_total",
			Help: "Destination files removed because their source is gone",
		}),
		reconcileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_reconcile_delete_failures_total",
			Help: "Destination deletes that failed during reconciliation",
		}),
		reconcilePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_reconcile_passes_total",
			Help: "Completed reconciliation passes",
		}),
		watchdogOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_watchdog_overruns_total",
			Help: "Jobs still running when the run deadline elapsed",
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mirror_runs_total",
			Help: "Completed mirror runs",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mirror_run_duration_seconds",
			Help:    "Mirror run wall time",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}

	c.registry.MustRegister(
		c.jobsAdmitted,
		c.alreadyConverted,
		c.jobsFinished,
		c.jobDuration,
		c.jobsInFlight,
		c.encodesActive,
		c.reconcileDeleted,
		c.reconcileFailures,
		c.reconcilePasses,
		c.watchdogOverruns,
		c.runs,
		c.runDuration,
	)
	return c
}

// RecordAdmission records the outcome of one admission pass.
func (c *Collector) RecordAdmission(jobs, alreadyConverted int) {
	if c == nil {
		return
	}
	c.jobsAdmitted.Add(float64(jobs))
	c.alreadyConverted.Add(float64(alreadyConverted))
}

func (c *Collector) JobSubmitted() {
	if c == nil {
		return
	}
	c.jobsInFlight.Inc()
}

func (c *Collector) JobFinished(status, action string, d time.Duration) {
	if c == nil {
		return
	}
	c.jobsInFlight.Dec()
	c.jobsFinished.WithLabelValues(status, action).Inc()
	c.jobDuration.WithLabelValues(action).Observe(d.Seconds())
}

func (c *Collector) EncodeStarted() {
	if c == nil {
		return
	}
	c.encodesActive.Inc()
}

func (c *Collector) EncodeFinished() {
	if c == nil {
		return
	}
	c.encodesActive.Dec()
}

func (c *Collector) RecordReconcile(deleted, failed int) {
	if c == nil {
		return
	}
	c.reconcilePasses.Inc()
	c.reconcileDeleted.Add(float64(deleted))
	c.reconcileFailures.Add(float64(failed))
}

func (c *Collector) RecordOverruns(n int) {
	if c == nil {
		return
	}
	c.watchdogOverruns.Add(float64(n))
}

func (c *Collector) RunFinished(d time.Duration) {
	if c == nil {
		return
	}
	c.runs.Inc()
	c.runDuration.Observe(d.Seconds())
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
