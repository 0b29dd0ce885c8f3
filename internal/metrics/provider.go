package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Captioning, OCR and geocoding provider metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Calls to vision and geocoding providers, by operation and outcome",
	}, []string{"provider", "operation", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Latency of vision and geocoding provider calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider", "operation"})
)

// ObserveProvider records one provider call started at start.
func ObserveProvider(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func providerCollectors() []prometheus.Collector {
	return []prometheus.Collector{ProviderRequestsTotal, ProviderRequestDuration}
}
