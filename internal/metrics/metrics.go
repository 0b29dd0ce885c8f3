// Package metrics holds the Prometheus collectors of the memento service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memento"

var registerOnce sync.Once

// Register adds every collector to the default registry. Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		for _, group := range [][]prometheus.Collector{
			httpCollectors(),
			embeddingCollectors(),
			providerCollectors(),
			searchCollectors(),
		} {
			prometheus.MustRegister(group...)
		}
	})
}
