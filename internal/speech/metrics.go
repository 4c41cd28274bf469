package speech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	listenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_listen_total",
		Help: "Listen attempts by outcome",
	}, []string{"outcome"})

	vadStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_vad_starts_total",
		Help: "Speech start events detected",
	})

	vadEnds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_vad_ends_total",
		Help: "Speech end events detected",
	})

	transcribeMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_transcribe_ms",
		Help:    "Transcription request latency (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.6, 10),
	})

	utteranceMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_utterance_ms",
		Help:    "Length of captured utterances (ms)",
		Buckets: prometheus.ExponentialBuckets(200, 1.6, 10),
	})

	gaugeThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speech_energy_threshold",
		Help: "Energy threshold after ambient calibration",
	})
)
