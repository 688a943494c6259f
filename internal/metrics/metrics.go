package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics of the tracking hub and its gateway
var (
	HubConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections",
			Help: "Number of connections registered with the hub",
		},
	)

	HubSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_subscriptions",
			Help: "Number of active (connection, topic) subscriptions",
		},
	)

	HubEventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_published_total",
			Help: "Total number of events published, by topic kind",
		},
		[]string{"kind"},
	)

	HubEventsDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_events_delivered_total",
			Help: "Total number of events handed to connection sinks",
		},
	)

	HubEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_dropped_total",
			Help: "Total number of events dropped for a connection, by reason",
		},
		[]string{"reason"},
	)

	HubSubscribeRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_subscribe_rejected_total",
			Help: "Total number of subscriptions refused by authorization",
		},
	)

	GatewayInvalidPayloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_invalid_payload_total",
			Help: "Total number of inbound messages dropped as invalid, by message type",
		},
		[]string{"type"},
	)

	GatewayStatusRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_status_request_duration_seconds",
			Help:    "Duration of agent status requests including the REST round trip",
			Buckets: prometheus.DefBuckets,
		},
	)

	RestRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rest_request_duration_seconds",
			Help:    "Duration of calls to the REST backend, by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LocationsFlushedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "locations_flushed_total",
			Help: "Total number of cached agent locations written back to the REST backend",
		},
	)
)

// Drop reasons
const (
	DropMailboxFull  = "mailbox_full"
	DropUnsubscribed = "unsubscribed"
	DropSinkError    = "sink_error"
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(HubConnections)
	prometheus.MustRegister(HubSubscriptions)
	prometheus.MustRegister(HubEventsPublishedTotal)
	prometheus.MustRegister(HubEventsDeliveredTotal)
	prometheus.MustRegister(HubEventsDroppedTotal)
	prometheus.MustRegister(HubSubscribeRejectedTotal)
	prometheus.MustRegister(GatewayInvalidPayloadTotal)
	prometheus.MustRegister(GatewayStatusRequestDuration)
	prometheus.MustRegister(RestRequestDuration)
	prometheus.MustRegister(LocationsFlushedTotal)
}
