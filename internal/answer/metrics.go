package answer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "answer_remote_latency_ms",
		Help:    "Remote answer request latency (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.6, 12),
	})

	metricCircuitOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "answer_circuit_open_total",
		Help: "Times the remote answer backend circuit opened",
	})
)
