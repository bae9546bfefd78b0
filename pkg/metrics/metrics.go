// Package metrics provides Prometheus metrics for the sync pipeline:
// record counts per chunk and run outcomes with duration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed counts processed records by entity and source type
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_records_processed_total",
		Help: "Total records produced by processors",
	}, []string{"entity", "source"})

	// RecordsCreated counts destination rows created
	RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_records_created_total",
		Help: "Total destination rows created",
	}, []string{"entity", "source"})

	// RecordsUpdated counts destination rows updated in place
	RecordsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_records_updated_total",
		Help: "Total destination rows updated",
	}, []string{"entity", "source"})

	// RecordsFailed counts records dropped by validation or persistence
	RecordsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_records_failed_total",
		Help: "Total records dropped by validation or persistence errors",
	}, []string{"entity", "source"})

	// RunsTotal counts finished sync runs by terminal status
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsync_runs_total",
		Help: "Total sync runs by terminal status",
	}, []string{"entity", "source", "status"})

	// RunDuration observes end-to-end run duration
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partsync_run_duration_seconds",
		Help:    "Sync run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"entity", "source"})
)

// RecordChunk records one chunk's counts.
func RecordChunk(entity, source string, processed, created, updated, failed int) {
	RecordsProcessed.WithLabelValues(entity, source).Add(float64(processed))
	RecordsCreated.WithLabelValues(entity, source).Add(float64(created))
	RecordsUpdated.WithLabelValues(entity, source).Add(float64(updated))
	RecordsFailed.WithLabelValues(entity, source).Add(float64(failed))
}

// RecordRun records one finished run.
func RecordRun(entity, source, status string, duration time.Duration) {
	RunsTotal.WithLabelValues(entity, source, status).Inc()
	RunDuration.WithLabelValues(entity, source).Observe(duration.Seconds())
}
