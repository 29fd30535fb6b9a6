// Package metrics exposes the Prometheus collectors of the synchronization engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync metrics
	rowsSyncedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakila_etl_rows_synced_total",
		Help: "Rows written to the analytics store per table and operation",
	}, []string{"table", "op"})

	rowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakila_etl_rows_dropped_total",
		Help: "Bridge and fact rows dropped for unresolved references",
	}, []string{"table"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakila_etl_runs_total",
		Help: "Synchronization runs per mode and status",
	}, []string{"mode", "status"})

	runDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sakila_etl_run_duration_seconds",
		Help:    "Duration of synchronization runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"mode"})

	watermarkGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sakila_etl_watermark_timestamp_seconds",
		Help: "Last committed watermark per table",
	}, []string{"table"})

	// Reconciliation metrics
	validationMismatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sakila_etl_validation_mismatches_total",
		Help: "Reconciliation checks that disagreed between source and target",
	}, []string{"check"})

	validationRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sakila_etl_validation_runs_total",
		Help: "Reconciliation runs",
	})
)

// RecordTable adds the counters of one table step
func RecordTable(table string, inserted, updated, dropped int) {
	rowsSyncedTotal.WithLabelValues(table, "insert").Add(float64(inserted))
	rowsSyncedTotal.WithLabelValues(table, "update").Add(float64(updated))
	if dropped > 0 {
		rowsDroppedTotal.WithLabelValues(table).Add(float64(dropped))
	}
}

// RecordRun records the outcome of a run
func RecordRun(mode, status string, duration time.Duration) {
	runsTotal.WithLabelValues(mode, status).Inc()
	runDurationHistogram.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordWatermark publishes a committed watermark
func RecordWatermark(table string, t time.Time) {
	watermarkGauge.WithLabelValues(table).Set(float64(t.Unix()))
}

// RecordValidation records one reconciliation run and its failed checks
func RecordValidation(failedChecks []string) {
	validationRunsTotal.Inc()
	for _, check := range failedChecks {
		validationMismatchesTotal.WithLabelValues(check).Inc()
	}
}
