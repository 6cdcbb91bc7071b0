package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshop_optimizer_requests_total",
		Help: "Optimize requests by outcome",
	}, []string{"result"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "workshop_optimizer_search_duration_seconds",
		Help:    "Time spent enumerating and ranking one request",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	resultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workshop_optimizer_results_total",
		Help: "Ranked chains returned to callers",
	})

	catalogRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workshop_optimizer_catalog_rebuilds_total",
		Help: "Catalog pushes processed by the worker, by outcome",
	}, []string{"result"})

	protocolDesync = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workshop_optimizer_protocol_desync_total",
		Help: "Optimized replies received with no outstanding request",
	})

	pendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workshop_optimizer_pending_requests",
		Help: "Optimize requests waiting for a reply",
	})
)
