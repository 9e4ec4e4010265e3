// Package metrics exposes Prometheus collectors for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the import pipeline collectors, registered on their own
// registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	ImportsStarted    *prometheus.CounterVec
	ImportsCompleted  *prometheus.CounterVec
	ImportsFailed     *prometheus.CounterVec
	ImportsRolledBack prometheus.Counter
	RowsProcessed     *prometheus.CounterVec
	EntitiesCreated   *prometheus.CounterVec

	DetectionConfidence *prometheus.HistogramVec
	BatchDuration       prometheus.Histogram
}

// New creates and registers the import collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ImportsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "imports_started_total",
			Help:      "Import runs started, by extractor.",
		}, []string{"extractor"}),
		ImportsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "imports_completed_total",
			Help:      "Import runs committed successfully, by extractor.",
		}, []string{"extractor"}),
		ImportsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "imports_failed_total",
			Help:      "Import runs that failed before or during commit, by extractor.",
		}, []string{"extractor"}),
		ImportsRolledBack: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "imports_rolled_back_total",
			Help:      "Import batches rolled back.",
		}),
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "rows_processed_total",
			Help:      "Dataset rows processed, by extractor.",
		}, []string{"extractor"}),
		EntitiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_import",
			Name:      "entities_created_total",
			Help:      "Entities created by imports, by entity type.",
		}, []string{"entity_type"}),
		DetectionConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pos_import",
			Name:      "detection_confidence",
			Help:      "Detection confidence scores, by extractor.",
			Buckets:   prometheus.LinearBuckets(0.0, 0.1, 11),
		}, []string{"extractor"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pos_import",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}

	m.registry.MustRegister(
		m.ImportsStarted,
		m.ImportsCompleted,
		m.ImportsFailed,
		m.ImportsRolledBack,
		m.RowsProcessed,
		m.EntitiesCreated,
		m.DetectionConfidence,
		m.BatchDuration,
	)
	return m
}

// Registry returns the registry backing the collectors, for exposing via
// promhttp or gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
