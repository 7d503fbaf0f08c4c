// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Quote metrics
	QuotesServed     *prometheus.CounterVec
	QuoteErrors      *prometheus.CounterVec
	QuoteDuration    *prometheus.HistogramVec
	ContextLoadError prometheus.Counter

	// Protocol health gauges
	CollateralRatio prometheus.Gauge
	TVLUSD          prometheus.Gauge
	StabilityMode   prometheus.Gauge
	StablecoinNAV   prometheus.Gauge
	LevercoinNAV    prometheus.Gauge
	OracleAge       prometheus.Gauge

	// Chain client metrics
	RPCCallLatency  *prometheus.HistogramVec
	AccountUpdates  *prometheus.CounterVec
	TrackerRefreshs prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_exchange_core"
	}

	return &Metrics{
		// Quote metrics
		QuotesServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "served_total",
			Help:      "Total number of quotes served by operation",
		}, []string{"operation"}),
		QuoteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "errors_total",
			Help:      "Total number of quote failures by operation and error kind",
		}, []string{"operation", "error_kind"}),
		QuoteDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "duration_seconds",
			Help:      "Quote computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ContextLoadError: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "context_load_errors_total",
			Help:      "Total number of exchange context load failures",
		}),

		// Protocol health gauges
		CollateralRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "collateral_ratio",
			Help:      "Current collateral ratio",
		}),
		TVLUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "tvl_usd",
			Help:      "Total value locked in USD",
		}),
		StabilityMode: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "stability_mode",
			Help:      "Current stability mode: 0=stable, 1=decay, 2=depeg",
		}),
		StablecoinNAV: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "stablecoin_nav_usd",
			Help:      "Stablecoin net asset value in USD",
		}),
		LevercoinNAV: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "levercoin_nav_usd",
			Help:      "Levercoin redeem-side net asset value in USD",
		}),
		OracleAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "oracle_age_seconds",
			Help:      "Age of the last oracle price update in seconds",
		}),

		// Chain client metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		AccountUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "account_updates_total",
			Help:      "Total number of WebSocket account updates by status",
		}, []string{"status"}),
		TrackerRefreshs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "tracker_refreshes_total",
			Help:      "Total number of full account set refreshes",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful account refresh",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordQuote records a served quote.
func RecordQuote(operation string, seconds float64) {
	DefaultMetrics.QuotesServed.WithLabelValues(operation).Inc()
	DefaultMetrics.QuoteDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordQuoteError records a quote failure.
func RecordQuoteError(operation, errorKind string) {
	DefaultMetrics.QuoteErrors.WithLabelValues(operation, errorKind).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordAccountUpdate records a WebSocket account update.
func RecordAccountUpdate(status string) {
	DefaultMetrics.AccountUpdates.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateProtocolHealth updates the protocol health gauges.
func UpdateProtocolHealth(collateralRatio, tvlUSD float64, mode int, stablecoinNAV, levercoinNAV float64) {
	DefaultMetrics.CollateralRatio.Set(collateralRatio)
	DefaultMetrics.TVLUSD.Set(tvlUSD)
	DefaultMetrics.StabilityMode.Set(float64(mode))
	DefaultMetrics.StablecoinNAV.Set(stablecoinNAV)
	DefaultMetrics.LevercoinNAV.Set(levercoinNAV)
}
