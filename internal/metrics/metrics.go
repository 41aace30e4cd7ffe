package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedFetchesTotal tracks feed fetches by outcome (complete, error, stale)
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_feed_fetches_total",
			Help: "Total number of feed fetches by outcome",
		},
		[]string{"feed", "outcome"},
	)

	// FeedFetchLatency tracks how long a feed fetch takes
	FeedFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletview_feed_fetch_latency_seconds",
			Help:    "Feed fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	// NotificationsTotal tracks user-facing notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_notifications_total",
			Help: "Total number of notifications emitted",
		},
		[]string{"severity"},
	)

	// SessionTransitionsTotal tracks session state changes
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)

	// ActiveNetwork is 1 for the network the session is bound to
	ActiveNetwork = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletview_active_network",
			Help: "Network the session is currently bound to",
		},
		[]string{"network"},
	)

	// TransfersTotal tracks transfer builds and submissions
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_transfers_total",
			Help: "Total number of token transfer operations",
		},
		[]string{"stage", "outcome"},
	)

	// RPCCallsTotal tracks RPC calls per network and provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletview_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletview_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// DBConnectionPoolUsage is the percentage of open connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletview_db_connection_pool_usage",
			Help: "Percentage of the database connection pool in use",
		},
	)
)
