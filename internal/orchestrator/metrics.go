package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generated items partitioned by content kind
	itemsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_generated_total",
			Help: "Total batch items generated successfully",
		},
		[]string{"kind"},
	)

	itemsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_items_failed_total",
			Help: "Total batch items that failed to generate",
		},
	)

	// Semantic cache outcomes partitioned by content kind
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_cache_hits_total",
			Help: "Total semantic cache hits during batch generation",
		},
		[]string{"kind"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_cache_misses_total",
			Help: "Total semantic cache misses during batch generation",
		},
		[]string{"kind"},
	)

	// Terminal job outcomes partitioned by final status
	jobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_jobs_finished_total",
			Help: "Total batch jobs reaching a terminal status",
		},
		[]string{"status"},
	)
)
