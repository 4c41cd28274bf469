package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Monitor events published by type",
	}, []string{"type"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_subscriber_drops_total",
		Help: "Events not delivered to a slow subscriber",
	})

	gaugeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_subscribers",
		Help: "Live event feed subscribers",
	})
)
