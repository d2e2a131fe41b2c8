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
	// Ingestion metrics
	EventsProcessed       *prometheus.CounterVec
	EventProcessingErrors *prometheus.CounterVec
	BatchesProcessed      prometheus.Counter
	BatchItemsSkipped     prometheus.Counter
	BatchItemErrors       prometheus.Counter

	// Subscription metrics
	SubscriptionActive   prometheus.Gauge
	SubscriptionRestarts *prometheus.CounterVec

	// Endpoint pool metrics
	EndpointRequests  *prometheus.CounterVec
	EndpointCooldowns *prometheus.CounterVec

	// Monitoring metrics
	TokensTracked *prometheus.GaugeVec
	EntrySignals  prometheus.Counter
	ExitSignals   *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastEventReceived prometheus.Gauge
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_sentinel"
	}

	return &Metrics{
		// Ingestion metrics
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_processed_total",
			Help:      "Total number of program events processed by type and path",
		}, []string{"event_type", "path"}),
		EventProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by type",
		}, []string{"event_type", "error_type"}),
		BatchesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batches_processed_total",
			Help:      "Total number of webhook batches processed",
		}),
		BatchItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batch_items_skipped_total",
			Help:      "Total number of batch items skipped as irrelevant or untracked",
		}),
		BatchItemErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batch_item_errors_total",
			Help:      "Total number of batch items rejected as malformed or unconfirmable",
		}),

		// Subscription metrics
		SubscriptionActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Whether a live log subscription is open (1) or not (0)",
		}),
		SubscriptionRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "restarts_total",
			Help:      "Total number of subscription restarts by cause",
		}, []string{"cause"}),

		// Endpoint pool metrics
		EndpointRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "endpoint_requests_total",
			Help:      "Total number of requests attributed to each endpoint",
		}, []string{"endpoint"}),
		EndpointCooldowns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "endpoint_cooldowns_total",
			Help:      "Total number of endpoint cooldown transitions",
		}, []string{"endpoint"}),

		// Monitoring metrics
		TokensTracked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tokens_tracked",
			Help:      "Number of tokens currently tracked by phase",
		}, []string{"phase"}),
		EntrySignals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "entry_signals_total",
			Help:      "Total number of entry signals emitted",
		}),
		ExitSignals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "exit_signals_total",
			Help:      "Total number of exit signals emitted by reason",
		}, []string{"reason"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
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
		LastEventReceived: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_received_timestamp",
			Help:      "Unix timestamp of the last program event received",
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications sent by type",
		}, []string{"type"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the events processed counter.
func RecordEventProcessed(eventType, path string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(eventType, path).Inc()
	DefaultMetrics.LastEventReceived.SetToCurrentTime()
}

// RecordEventError records an event processing error.
func RecordEventError(eventType, errorType string) {
	DefaultMetrics.EventProcessingErrors.WithLabelValues(eventType, errorType).Inc()
}

// RecordBatch records one processed webhook batch with its per-item outcomes.
func RecordBatch(skipped, itemErrors int) {
	DefaultMetrics.BatchesProcessed.Inc()
	DefaultMetrics.BatchItemsSkipped.Add(float64(skipped))
	DefaultMetrics.BatchItemErrors.Add(float64(itemErrors))
}

// SetSubscriptionActive updates the live subscription gauge.
func SetSubscriptionActive(active bool) {
	if active {
		DefaultMetrics.SubscriptionActive.Set(1)
	} else {
		DefaultMetrics.SubscriptionActive.Set(0)
	}
}

// RecordSubscriptionRestart records one subscription restart.
func RecordSubscriptionRestart(cause string) {
	DefaultMetrics.SubscriptionRestarts.WithLabelValues(cause).Inc()
}

// RecordEndpointRequest attributes one request to an endpoint.
func RecordEndpointRequest(endpoint string) {
	DefaultMetrics.EndpointRequests.WithLabelValues(endpoint).Inc()
}

// RecordEndpointCooldown records one endpoint cooldown transition.
func RecordEndpointCooldown(endpoint string) {
	DefaultMetrics.EndpointCooldowns.WithLabelValues(endpoint).Inc()
}

// SetTokensTracked updates the tracked-token gauge for a phase.
func SetTokensTracked(phase string, count int) {
	DefaultMetrics.TokensTracked.WithLabelValues(phase).Set(float64(count))
}

// RecordEntrySignal increments the entry signal counter.
func RecordEntrySignal() {
	DefaultMetrics.EntrySignals.Inc()
}

// RecordExitSignal records one exit signal by reason.
func RecordExitSignal(reason string) {
	DefaultMetrics.ExitSignals.WithLabelValues(reason).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordNotification records one sent notification by type.
func RecordNotification(notificationType string) {
	DefaultMetrics.NotificationsSent.WithLabelValues(notificationType).Inc()
}
