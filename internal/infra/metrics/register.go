package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register enqueues collectors from each file's init; nothing touches the
// default registry until MustRegister runs.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every enqueued collector exactly once. Called from
// cmd/app before the servers start.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(collectors...)
	})
}
