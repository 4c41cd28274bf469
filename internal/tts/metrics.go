package tts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ttsSynthesisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tts_synthesis_total",
		Help: "Total TTS synthesis requests by status",
	}, []string{"status"})

	ttsLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tts_latency_ms",
		Help:    "Time from request to complete PCM body (ms)",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 12),
	})

	ttsAudioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tts_audio_bytes_total",
		Help: "PCM bytes produced by synthesis",
	})
)
