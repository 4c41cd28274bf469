package enroll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSlotPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enroll_slot_published_total",
		Help: "Unknown faces handed to the voice loop for naming",
	})

	metricSlotRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enroll_slot_rejected_total",
		Help: "Enrollment triggers dropped because one was already pending",
	})

	metricSlotExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enroll_slot_expired_total",
		Help: "Pending enrollments abandoned without a name",
	})

	metricAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enroll_attempts_total",
		Help: "Name attempts by outcome (saved, invalid, exists, error)",
	}, []string{"result"})
)
