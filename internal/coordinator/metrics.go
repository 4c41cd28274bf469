package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perception_frames_total",
		Help: "Camera frames processed by the perception loop",
	})

	metricFrameErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perception_frame_errors_total",
		Help: "Frames skipped because of a read error or panic",
	})

	metricCameraOpenFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perception_camera_open_failures_total",
		Help: "Failed attempts to acquire the camera",
	})

	metricCameraReopens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perception_camera_reopen_total",
		Help: "Times the camera was released after repeated frame errors",
	})

	metricEnrollOffers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perception_enroll_offers_total",
		Help: "Unknown faces handed to the enrollment slot",
	})

	voiceStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_starts_total",
		Help: "Voice loop start attempts by result",
	}, []string{"result"})

	gaugeVoiceRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_running",
		Help: "1 while the voice loop is running",
	})
)
