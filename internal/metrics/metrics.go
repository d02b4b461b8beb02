// Package metrics defines the prometheus collectors for batch
// processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Batch bundles the batch-coordinator collectors.
type Batch struct {
	ItemsProcessed *prometheus.CounterVec
	ItemDuration   prometheus.Histogram
	JobsActive     prometheus.Gauge
}

// NewBatch builds the collectors and registers them on reg. Passing
// a fresh registry keeps tests isolated from the default one.
func NewBatch(reg prometheus.Registerer) *Batch {
	b := &Batch{
		ItemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cylbom",
			Subsystem: "batch",
			Name:      "items_processed_total",
			Help:      "Items processed, by outcome.",
		}, []string{"outcome"}),
		ItemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cylbom",
			Subsystem: "batch",
			Name:      "item_duration_seconds",
			Help:      "Wall time per processed item.",
			Buckets:   prometheus.DefBuckets,
		}),
		JobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cylbom",
			Subsystem: "batch",
			Name:      "jobs_active",
			Help:      "Batch jobs currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(b.ItemsProcessed, b.ItemDuration, b.JobsActive)
	}
	return b
}
