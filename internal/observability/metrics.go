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
	// Ledger metrics
	TransactionsProcessed *prometheus.CounterVec
	InstructionsProcessed *prometheus.CounterVec
	TransactionLatency    prometheus.Histogram
	CurrentSlot           prometheus.Gauge
	AirdropLamports       prometheus.Counter

	// RPC metrics
	RPCRequests          *prometheus.CounterVec
	RPCCallLatency       *prometheus.HistogramVec
	WSSubscriptions      prometheus.Gauge
	NotificationsDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastCommitTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer), namespace)
}

// NewMetricsWithRegistry registers metrics on reg instead of the default registry.
func NewMetricsWithRegistry(reg prometheus.Registerer, namespace string) *Metrics {
	return newMetrics(promauto.With(reg), namespace)
}

func newMetrics(f promauto.Factory, namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_ledger"
	}

	return &Metrics{
		TransactionsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_processed_total",
			Help:      "Total number of transactions processed by status",
		}, []string{"status"}),
		InstructionsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "token_instructions_processed_total",
			Help:      "Total number of token-transfer instructions by name and status",
		}, []string{"instruction", "status"}),
		TransactionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transaction_latency_seconds",
			Help:      "Transaction processing latency in seconds, including lock wait",
			Buckets:   prometheus.DefBuckets,
		}),
		CurrentSlot: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "slot",
			Help:      "Current ledger slot",
		}),
		AirdropLamports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "airdrop_lamports_total",
			Help:      "Total lamports paid out by the faucet",
		}),

		RPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of JSON-RPC requests by method and status",
		}, []string{"method", "status"}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "ws_subscriptions",
			Help:      "Number of active WebSocket account subscriptions",
		}),
		NotificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "notifications_dropped_total",
			Help:      "Account notifications dropped because a subscriber fell behind",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastCommitTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_commit_timestamp",
			Help:      "Unix timestamp of the last committed transaction",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordTransaction records a processed transaction and its latency.
func RecordTransaction(err error, seconds float64) {
	DefaultMetrics.TransactionsProcessed.WithLabelValues(status(err)).Inc()
	DefaultMetrics.TransactionLatency.Observe(seconds)
}

// RecordInstruction records one executed token-transfer instruction.
func RecordInstruction(name string, success bool) {
	s := "ok"
	if !success {
		s = "error"
	}
	DefaultMetrics.InstructionsProcessed.WithLabelValues(name, s).Inc()
}

// RecordCommit updates the health gauge after a successful commit.
func RecordCommit(unixSeconds int64) {
	DefaultMetrics.LastCommitTimestamp.Set(float64(unixSeconds))
}

// RecordAirdrop records lamports paid out by the faucet.
func RecordAirdrop(lamports uint64) {
	DefaultMetrics.AirdropLamports.Add(float64(lamports))
}

// UpdateSlot updates the current slot gauge.
func UpdateSlot(slot uint64) {
	DefaultMetrics.CurrentSlot.Set(float64(slot))
}

// RecordRPCCall records a JSON-RPC call and its latency.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCRequests.WithLabelValues(method, status(err)).Inc()
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// UpdateWSSubscriptions adjusts the active subscription gauge by delta.
func UpdateWSSubscriptions(delta int) {
	DefaultMetrics.WSSubscriptions.Add(float64(delta))
}

// RecordNotificationDropped counts an account notification that could not be delivered.
func RecordNotificationDropped() {
	DefaultMetrics.NotificationsDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
