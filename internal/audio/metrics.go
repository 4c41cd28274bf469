package audio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	micFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_mic_frames_dropped_total",
		Help: "Capture frames dropped because the consumer was slow",
	})

	speakerQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_speaker_queued_total",
		Help: "Utterances queued for playback",
	})

	speakerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_speaker_dropped_total",
		Help: "Utterances dropped because the speaker queue was full",
	})

	speakerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_speaker_errors_total",
		Help: "Speaker failures by stage",
	}, []string{"stage"})

	speakerPlaybackMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_speaker_utterance_ms",
		Help:    "Time from dequeue to end of playback (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.6, 12),
	})
)
