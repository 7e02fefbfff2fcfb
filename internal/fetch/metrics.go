package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchSettled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_fetch_settled_total",
		Help: "Asynchronous fetches by resource and final state (fulfilled, rejected, discarded)",
	},
	[]string{"resource", "state"},
)
