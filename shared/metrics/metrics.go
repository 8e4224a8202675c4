// Package metrics holds the prometheus collectors of the core service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	organizationMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assurcore",
		Subsystem: "organization",
		Name:      "mutations_total",
		Help:      "Total number of organization mutations broken down by operation and result.",
	}, []string{"operation", "result"})

	hierarchyRebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assurcore",
		Subsystem: "hierarchy",
		Name:      "rebuild_duration_seconds",
		Help:      "Duration of full closure table rebuilds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"mode"})

	hierarchyRebuildRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "assurcore",
		Subsystem: "hierarchy",
		Name:      "rebuild_rows",
		Help:      "Number of closure rows produced by the last rebuild.",
	})

	visibleSetCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assurcore",
		Subsystem: "tenant_cache",
		Name:      "requests_total",
		Help:      "Visible organization set cache lookups broken down by hit/miss.",
	}, []string{"result"})

	eventDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assurcore",
		Subsystem: "events",
		Name:      "deliveries_total",
		Help:      "Domain event deliveries broken down by sink and result.",
	}, []string{"sink", "result"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordMutation(operation string, err error) {
	organizationMutations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func RecordRebuild(dryRun bool, rows int, elapsed time.Duration) {
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	hierarchyRebuildDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	hierarchyRebuildRows.Set(float64(rows))
}

func RecordCacheRequest(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	visibleSetCacheRequests.WithLabelValues(result).Inc()
}

func RecordDelivery(sink string, err error) {
	eventDeliveries.WithLabelValues(sink, resultLabel(err)).Inc()
}
