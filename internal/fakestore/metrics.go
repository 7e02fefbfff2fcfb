package fakestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_upstream_requests_total",
			Help: "Catalog API calls by operation and outcome (success, not_found, error)",
		},
		[]string{"operation", "outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_cache_lookups_total",
			Help: "Catalog cache lookups by resource and result (hit, miss, error)",
		},
		[]string{"resource", "result"},
	)
)
