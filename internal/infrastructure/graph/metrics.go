package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraud",
			Subsystem: "graph",
			Name:      "query_duration_seconds",
			Help:      "Graph query latency by operation",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	queryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud",
			Subsystem: "graph",
			Name:      "query_errors_total",
			Help:      "Graph query failures by operation",
		},
		[]string{"operation"},
	)
)
