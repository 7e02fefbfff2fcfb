package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sessions_active",
		Help: "Number of live storefront sessions",
	})

	sessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_sessions_ended_total",
			Help: "Sessions torn down, by reason (expired, destroyed, shutdown)",
		},
		[]string{"reason"},
	)
)
