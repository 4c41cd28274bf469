package face

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vision_matches_total",
		Help: "Face match results by outcome (known, unknown)",
	}, []string{"result"})

	metricFacesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vision_faces_dropped_total",
		Help: "Detections dropped by the per-frame face cap",
	})

	metricFrameMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vision_frame_ms",
		Help:    "Sidecar frame capture and encode latency (ms)",
		Buckets: prometheus.ExponentialBuckets(10, 1.6, 12),
	})

	metricFrameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vision_frame_errors_total",
		Help: "Frames that failed in the sidecar",
	})

	gaugeGallerySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vision_gallery_size",
		Help: "Enrolled identities currently loaded",
	})
)
