// Package observability provides Prometheus metrics and tracing for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	// Stream metrics
	SwapsDecoded      prometheus.Counter
	SwapsFiltered     *prometheus.CounterVec
	BlockFetchErrors  prometheus.Counter
	StreamReconnects  prometheus.Counter
	StreamState       prometheus.Gauge
	HighestSlotSeen   prometheus.Gauge
	StreamQueueLength prometheus.Gauge

	// Evaluation metrics
	EvaluationsTotal  *prometheus.CounterVec
	OracleLatency     *prometheus.HistogramVec
	OracleFallbacks   prometheus.Counter
	OpportunityScores prometheus.Histogram
	DecisionsTotal    *prometheus.CounterVec

	// Execution metrics
	SimulationsTotal *prometheus.CounterVec
	ExecutionsTotal  *prometheus.CounterVec
	ExecutionLatency *prometheus.HistogramVec

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastProcessedSwap prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_mev_agent"
	}

	return &Metrics{
		// Stream metrics
		SwapsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "swaps_decoded_total",
			Help:      "Total number of swap transactions decoded from blocks",
		}),
		SwapsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "swaps_filtered_total",
			Help:      "Total number of swaps dropped before evaluation by reason",
		}, []string{"reason"}),
		BlockFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "block_fetch_errors_total",
			Help:      "Total number of skipped slots due to block fetch errors",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		StreamState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=subscribed)",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),
		StreamQueueLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "queue_length",
			Help:      "Number of swaps waiting for evaluation",
		}),

		// Evaluation metrics
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "evaluations_total",
			Help:      "Total number of oracle evaluations by action",
		}, []string{"action"}),
		OracleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "oracle_latency_seconds",
			Help:      "Oracle evaluation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		OracleFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "oracle_fallbacks_total",
			Help:      "Total number of remote oracle failures answered by the heuristic",
		}),
		OpportunityScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "opportunity_score",
			Help:      "Distribution of oracle opportunity scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "decisions_total",
			Help:      "Total number of trade decisions by strategy",
		}, []string{"strategy"}),

		// Execution metrics
		SimulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "simulations_total",
			Help:      "Total number of simulations by result",
		}, []string{"result"}),
		ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Total number of executions by strategy and status",
		}, []string{"strategy", "status"}),
		ExecutionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "execution_latency_seconds",
			Help:      "Swap execution latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"strategy"}),

		// Notification metrics
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of notifications by channel and status",
		}, []string{"channel", "status"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

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
		LastProcessedSwap: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_processed_swap_timestamp",
			Help:      "Unix timestamp of the last swap that completed the pipeline",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSwapDecoded increments the decoded swaps counter.
func RecordSwapDecoded() {
	DefaultMetrics.SwapsDecoded.Inc()
}

// RecordSwapFiltered increments the filtered swaps counter.
func RecordSwapFiltered(reason string) {
	DefaultMetrics.SwapsFiltered.WithLabelValues(reason).Inc()
}

// RecordBlockFetchError increments the block fetch error counter.
func RecordBlockFetchError() {
	DefaultMetrics.BlockFetchErrors.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// SetStreamState sets the stream connection state gauge.
func SetStreamState(state int) {
	DefaultMetrics.StreamState.Set(float64(state))
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// SetQueueLength sets the pending swap queue gauge.
func SetQueueLength(n int) {
	DefaultMetrics.StreamQueueLength.Set(float64(n))
}

// RecordEvaluation records an oracle verdict and its score.
func RecordEvaluation(action string, score float64) {
	DefaultMetrics.EvaluationsTotal.WithLabelValues(action).Inc()
	DefaultMetrics.OpportunityScores.Observe(score)
}

// RecordOracleLatency records oracle latency by source.
func RecordOracleLatency(source string, seconds float64) {
	DefaultMetrics.OracleLatency.WithLabelValues(source).Observe(seconds)
}

// RecordOracleFallback increments the oracle fallback counter.
func RecordOracleFallback() {
	DefaultMetrics.OracleFallbacks.Inc()
}

// RecordDecision increments the decisions counter.
func RecordDecision(strategy string) {
	DefaultMetrics.DecisionsTotal.WithLabelValues(strategy).Inc()
}

// RecordSimulation records a simulation outcome ("passed", "failed" or "error").
func RecordSimulation(result string) {
	DefaultMetrics.SimulationsTotal.WithLabelValues(result).Inc()
}

// RecordExecution records an execution outcome and its latency.
func RecordExecution(strategy, status string, seconds float64) {
	DefaultMetrics.ExecutionsTotal.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.ExecutionLatency.WithLabelValues(strategy).Observe(seconds)
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query duration.
func RecordDBQuery(database, operation string, seconds float64) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
}

// RecordDBError increments the database error counter.
func RecordDBError(database, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
}

// MarkSwapProcessed sets the last processed swap timestamp.
func MarkSwapProcessed(unixSeconds int64) {
	DefaultMetrics.LastProcessedSwap.Set(float64(unixSeconds))
}
