package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "storefront_events"

// Outcomes recorded by consumedTotal.
const (
	outcomeHandled      = "handled"
	outcomeFailed       = "failed"
	outcomeUndecodable  = "undecodable"
	outcomeDeadLettered = "dead_lettered"
)

var (
	receivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "received_total",
			Help:      "Kafka messages fetched by storefront consumers.",
		},
		[]string{"topic", "consumer_group"},
	)

	consumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "consumed_total",
			Help:      "Kafka messages finished by storefront consumers, by outcome.",
		},
		[]string{"topic", "consumer_group", "outcome"},
	)

	handleSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one Kafka message, retries included.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		},
		[]string{"topic", "consumer_group"},
	)

	duplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicates_skipped_total",
			Help:      "Kafka events skipped because their event ID was already seen.",
		},
		[]string{"event_type"},
	)

	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "published_total",
			Help:      "Kafka publish attempts by the storefront, by result.",
		},
		[]string{"topic", "result"},
	)

	publishSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "publish_duration_seconds",
			Help:      "Latency of Kafka publish calls.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 5},
		},
		[]string{"topic"},
	)
)
