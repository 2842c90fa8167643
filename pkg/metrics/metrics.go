package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwn_messages_total",
			Help: "Total number of messages handled by interface and method",
		},
		[]string{"interface", "method", "status"},
	)

	MessageHandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dwn_message_handle_duration_seconds",
			Help:    "Time to handle a message end to end, by interface and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"interface", "method"},
	)

	// Authorization metrics
	AuthorizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_authorization_duration_seconds",
			Help:    "Time to run the authorization pipeline for a message",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuthorizationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dwn_authorization_failures_total",
			Help: "Total authorization failures by step",
		},
		[]string{"step"},
	)

	// Records metrics
	RecordsWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_records_write_duration_seconds",
			Help:    "Time to process a RecordsWrite",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_records_query_duration_seconds",
			Help:    "Time to process a RecordsQuery",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsDeleteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_records_delete_duration_seconds",
			Help:    "Time to process a RecordsDelete",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dwn_records_pruned_total",
			Help: "Total number of records pruned",
		},
	)

	// Protocol metrics
	ProtocolsConfiguredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dwn_protocols_configured_total",
			Help: "Total number of ProtocolsConfigure messages applied",
		},
	)

	ProtocolRuleEvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_protocol_rule_evaluation_duration_seconds",
			Help:    "Time to evaluate a RuleSet chain for an authorized action",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	MessageStoreEntriesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dwn_message_store_entries_total",
			Help: "Total entries in the message store by owner",
		},
		[]string{"owner"},
	)

	DataStoreBytesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dwn_data_store_bytes_total",
			Help: "Total bytes held in the data store by owner",
		},
		[]string{"owner"},
	)

	BlockStoreBlocksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwn_block_store_blocks_total",
			Help: "Total blocks held in the block store",
		},
	)

	// Task queue metrics
	TasksPendingTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dwn_tasks_pending_total",
			Help: "Total pending tasks by owner",
		},
		[]string{"owner"},
	)

	TasksLeaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dwn_tasks_lease_duration_seconds",
			Help:    "Time a task spent leased before it was deleted",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event stream metrics
	EventsAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dwn_events_appended_total",
			Help: "Total events appended to the event log",
		},
	)

	EventSubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dwn_event_subscriptions_active",
			Help: "Currently active event stream subscriptions",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(MessageHandleDuration)
	prometheus.MustRegister(AuthorizationDuration)
	prometheus.MustRegister(AuthorizationFailuresTotal)
	prometheus.MustRegister(RecordsWriteDuration)
	prometheus.MustRegister(RecordsQueryDuration)
	prometheus.MustRegister(RecordsDeleteDuration)
	prometheus.MustRegister(RecordsPrunedTotal)
	prometheus.MustRegister(ProtocolsConfiguredTotal)
	prometheus.MustRegister(ProtocolRuleEvaluationDuration)
	prometheus.MustRegister(MessageStoreEntriesTotal)
	prometheus.MustRegister(DataStoreBytesTotal)
	prometheus.MustRegister(BlockStoreBlocksTotal)
	prometheus.MustRegister(TasksPendingTotal)
	prometheus.MustRegister(TasksLeaseDuration)
	prometheus.MustRegister(EventsAppendedTotal)
	prometheus.MustRegister(EventSubscriptionsActive)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
