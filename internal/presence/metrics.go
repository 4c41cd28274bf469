package presence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricGreetings = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "presence_greetings_total",
	Help: "Greetings decided by reason (newcomer, returning, primary, unknown)",
}, []string{"reason"})
