// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	ContentQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_content_queries_total",
		Help: "Content store queries by query name and outcome",
	}, []string{"query", "outcome"})

	ContentQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsroom_content_query_duration_seconds",
		Help:    "Latency of content store queries",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms doubling to ~2.5s
	}, []string{"query"})

	ContentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsroom_content_retries_total",
		Help: "Retried content store requests",
	})

	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_feed_fetches_total",
		Help: "Feed table reads by outcome",
	}, []string{"outcome"})

	FeedSnapshotItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsroom_feed_snapshot_items",
		Help: "Items in the current /news ticker snapshot",
	})

	LoadMoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsroom_load_more_total",
		Help: "Load-more pagination requests by outcome",
	}, []string{"outcome"})
)
