// Package metrics provides Prometheus metrics for the retrieval automaton.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the application.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Replay metrics
	attemptsTotal     *prometheus.CounterVec // labeled by outcome
	retriesTotal      prometheus.Counter
	clicksTotal       prometheus.Counter
	keysProcessed     prometheus.Counter
	detectionTimeouts prometheus.Counter
	abortsTotal       prometheus.Counter
	stepDwellSeconds  prometheus.Histogram

	// Session metrics
	batchSize           prometheus.Gauge
	calibrationCaptures prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Initialize global metrics with a dedicated registry so default Go
// collectors do not leak into the scrape output.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hbmxml",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.attemptsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "replay_attempts_total",
		Help:      "Replay attempts by outcome (success, failure, aborted).",
	}, []string{"outcome"})

	m.retriesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "replay_retries_total",
		Help:      "Whole-sequence retries triggered by failed attempts.",
	})

	m.clicksTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "replay_clicks_total",
		Help:      "Pointer clicks issued by the replay engine.",
	})

	m.keysProcessed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "keys_processed_total",
		Help:      "Invoice keys whose processing finished, in any outcome.",
	})

	m.detectionTimeouts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "detection_timeouts_total",
		Help:      "Download detection timeouts.",
	})

	m.abortsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "aborts_total",
		Help:      "Operator-triggered aborts.",
	})

	m.stepDwellSeconds = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "step_dwell_seconds",
		Help:      "Observed dwell time spent after each click.",
		Buckets:   m.histogramBuckets,
	})

	m.batchSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "batch_size",
		Help:      "Number of invoice keys in the loaded batch.",
	})

	m.calibrationCaptures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "calibration_captures_total",
		Help:      "Coordinates captured during calibration.",
	})

	return m
}

// Handler returns an HTTP handler exposing this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers operating on the global manager.

// RecordAttempt records a finished replay attempt with its outcome label.
func RecordAttempt(outcome string) {
	if globalManager.enabled {
		globalManager.attemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordRetry records a whole-sequence retry.
func RecordRetry() {
	if globalManager.enabled {
		globalManager.retriesTotal.Inc()
	}
}

// RecordClick records one pointer click.
func RecordClick() {
	if globalManager.enabled {
		globalManager.clicksTotal.Inc()
	}
}

// RecordKeyProcessed records a key whose processing finished.
func RecordKeyProcessed() {
	if globalManager.enabled {
		globalManager.keysProcessed.Inc()
	}
}

// RecordDetectionTimeout records a download detection timeout.
func RecordDetectionTimeout() {
	if globalManager.enabled {
		globalManager.detectionTimeouts.Inc()
	}
}

// RecordAbort records an operator abort.
func RecordAbort() {
	if globalManager.enabled {
		globalManager.abortsTotal.Inc()
	}
}

// ObserveStepDwell records dwell seconds spent after a click.
func ObserveStepDwell(seconds float64) {
	if globalManager.enabled {
		globalManager.stepDwellSeconds.Observe(seconds)
	}
}

// UpdateBatchSize sets the loaded batch size gauge.
func UpdateBatchSize(n int) {
	if globalManager.enabled {
		globalManager.batchSize.Set(float64(n))
	}
}

// RecordCalibrationCapture records one captured coordinate.
func RecordCalibrationCapture() {
	if globalManager.enabled {
		globalManager.calibrationCaptures.Inc()
	}
}

// Handler exposes the global registry over HTTP.
func Handler() http.Handler {
	return globalManager.Handler()
}
