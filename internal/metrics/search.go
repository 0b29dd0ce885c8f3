package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, timeline and ingestion metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of memory searches",
		},
		[]string{"mode", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Memory search duration in seconds, embedding included",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	TimelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_requests_total",
			Help:      "Total number of timeline walks",
		},
		[]string{"direction", "status"},
	)

	TimelineDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_degraded_total",
			Help:      "Timeline directions that failed and were answered with an empty list",
		},
		[]string{"direction"},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Total number of image ingestions",
		},
		[]string{"status"},
	)

	IngestStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_stage_duration_seconds",
			Help:      "Duration of each ingestion stage in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	IngestDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_degraded_total",
			Help:      "Optional ingestion stages that failed without failing the upload",
		},
		[]string{"stage"},
	)
)

func searchCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		SearchRequestsTotal,
		SearchDuration,
		TimelineRequestsTotal,
		TimelineDegradedTotal,
		IngestTotal,
		IngestStageDuration,
		IngestDegradedTotal,
	}
}
