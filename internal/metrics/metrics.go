package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Acquisition Metrics
	CandidateAttempts *prometheus.CounterVec
	Acquisitions      *prometheus.CounterVec
	BytesDownloaded   *prometheus.CounterVec
	LastRunTimestamp  prometheus.Gauge

	// Pipeline Metrics
	CycleDuration prometheus.Histogram
	CycleFailures *prometheus.CounterVec

	// Render Metrics
	PanelsDrawn     prometheus.Counter
	DisposeFailures prometheus.Counter
	RedrawDuration  prometheus.Histogram
}

// NewCollector creates a collector registered on its own registry, so
// several collectors can coexist in one process (tests, demo).
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		CandidateAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_attempts_total",
				Help:      "Candidate runs tried, by hour and result",
			},
			[]string{"hour", "result"},
		),

		Acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acquisitions_total",
				Help:      "Acquisition cycles by outcome (new, unchanged, fallback)",
			},
			[]string{"outcome"},
		),

		BytesDownloaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloaded_bytes_total",
				Help:      "Bytes received from each provider",
			},
			[]string{"provider"},
		),

		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Issuance time of the run currently held",
			},
		),

		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of pipeline cycles in seconds",
				Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),

		CycleFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_failures_total",
				Help:      "Pipeline cycles skipped, by stage",
			},
			[]string{"stage"},
		),

		PanelsDrawn: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panels_drawn_total",
				Help:      "Map panels drawn",
			},
		),

		DisposeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispose_failures_total",
				Help:      "Render handles that failed to dispose",
			},
		),

		RedrawDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redraw_duration_seconds",
				Help:      "Time spent recomputing and redrawing a render plan",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
		),
	}
}

// Registry exposes the collector's registry for the HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordCandidate counts one candidate attempt.
func (c *Collector) RecordCandidate(hour int, result string) {
	if c == nil {
		return
	}
	c.CandidateAttempts.WithLabelValues(hourLabel(hour), result).Inc()
}

// RecordAcquisition counts one acquisition outcome.
func (c *Collector) RecordAcquisition(outcome string) {
	if c == nil {
		return
	}
	c.Acquisitions.WithLabelValues(outcome).Inc()
}

// RecordBytes adds downloaded bytes for a provider.
func (c *Collector) RecordBytes(provider string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.BytesDownloaded.WithLabelValues(provider).Add(float64(n))
}

// SetLastRun records the issuance time of the stored run.
func (c *Collector) SetLastRun(t time.Time) {
	if c == nil {
		return
	}
	c.LastRunTimestamp.Set(float64(t.Unix()))
}

// CycleTimer starts timing a pipeline cycle.
func (c *Collector) CycleTimer() *Timer {
	if c == nil {
		return &Timer{start: time.Now()}
	}
	return c.NewTimer(c.CycleDuration)
}

// RecordCycleFailure counts a skipped cycle.
func (c *Collector) RecordCycleFailure(stage string) {
	if c == nil {
		return
	}
	c.CycleFailures.WithLabelValues(stage).Inc()
}

// RecordRedraw records one redraw pass.
func (c *Collector) RecordRedraw(drawn, disposeFailures int, d time.Duration) {
	if c == nil {
		return
	}
	c.PanelsDrawn.Add(float64(drawn))
	c.DisposeFailures.Add(float64(disposeFailures))
	c.RedrawDuration.Observe(d.Seconds())
}

func hourLabel(hour int) string {
	return [...]string{"00", "06", "12", "18"}[hour/6%4]
}
