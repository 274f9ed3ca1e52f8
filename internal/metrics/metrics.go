// Package metrics provides Prometheus metrics for the news pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchedItems counts raw items returned per source.
	FetchedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newspipeline",
			Name:      "fetched_items_total",
			Help:      "Number of raw items fetched per source",
		},
		[]string{"source"},
	)

	// SourceFailures counts failed source fetches.
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newspipeline",
			Name:      "source_failures_total",
			Help:      "Number of failed source fetches",
		},
		[]string{"source"},
	)

	// StageRecords counts records processed by each stage.
	StageRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newspipeline",
			Name:      "stage_records_total",
			Help:      "Number of records processed per stage",
		},
		[]string{"stage"},
	)

	// StageErrors counts failed stage runs.
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newspipeline",
			Name:      "stage_errors_total",
			Help:      "Number of failed stage runs",
		},
		[]string{"stage"},
	)

	// StageDuration measures stage run duration.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newspipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of stage runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
)

// RecordFetch records the outcome of one source fetch.
func RecordFetch(source string, items int, err error) {
	if err != nil {
		SourceFailures.WithLabelValues(source).Inc()
		return
	}
	FetchedItems.WithLabelValues(source).Add(float64(items))
}

// RecordStage records one stage run.
func RecordStage(stage string, count int, started time.Time, err error) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		StageErrors.WithLabelValues(stage).Inc()
		return
	}
	StageRecords.WithLabelValues(stage).Add(float64(count))
}
