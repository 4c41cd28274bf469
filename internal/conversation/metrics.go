package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_state_transitions_total",
		Help: "Conversation state transitions",
	}, []string{"from", "to"})

	gaugeActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conversation_active",
		Help: "1 while a conversation is active",
	})

	routedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_answers_total",
		Help: "Answered questions by source",
	}, []string{"source"})

	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_utterances_total",
		Help: "Listen outcomes seen by the voice loop",
	}, []string{"outcome"})

	discardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_discarded_total",
		Help: "Utterances dropped because the kiosk was speaking",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_panics_total",
		Help: "Recovered panics in the voice loop",
	})
)
