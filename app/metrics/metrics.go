package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion pipeline metrics
	ItemsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_items_fetched_total",
			Help: "Total number of raw items fetched from sources",
		},
		[]string{"collection", "source"},
	)

	ItemsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_items_created_total",
			Help: "Total number of records persisted",
		},
		[]string{"collection", "status"},
	)

	ItemsDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_items_duplicate_total",
			Help: "Total number of items skipped as duplicates",
		},
		[]string{"collection"},
	)

	ItemsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_items_dropped_total",
			Help: "Total number of items dropped by the filter chain",
		},
		[]string{"collection"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_source_failures_total",
			Help: "Total number of source adapter failures",
		},
		[]string{"collection", "source"},
	)

	// Rolling window metrics
	WindowDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_window_deletions_total",
			Help: "Total number of records evicted by the rolling window",
		},
		[]string{"collection"},
	)

	PurgedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_purged_records_total",
			Help: "Total number of rejected/quarantined records purged by retention",
		},
		[]string{"collection"},
	)

	// Cycle metrics
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tidal_cycle_duration_seconds",
			Help:    "Ingestion cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	CyclesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidal_cycles_skipped_total",
			Help: "Total number of cycle triggers skipped because a cycle was already running",
		},
		[]string{"collection"},
	)
)
