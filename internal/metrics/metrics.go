package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "entrepreneur"

var (
	// HTTPRequestDuration tracks request latency by route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// ConnectionTransitions counts connection lifecycle changes
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_transitions_total",
		Help:      "Connection requests sent, accepted and declined",
	}, []string{"transition"})

	// MessagesSent counts direct messages
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Direct messages sent",
	})

	// EventRegistrations counts event registrations and cancellations
	EventRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_registrations_total",
		Help:      "Event registrations by action",
	}, []string{"action"})

	// GeocodeLookups counts city lookups by outcome
	GeocodeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_lookups_total",
		Help:      "City coordinate lookups by outcome",
	}, []string{"outcome"})

	// PushDeliveries counts push notifications by outcome
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_deliveries_total",
		Help:      "Push notification deliveries by outcome",
	}, []string{"outcome"})

	// WebSocketUsers is the number of users with at least one open socket
	WebSocketUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_users",
		Help:      "Users currently connected over WebSocket",
	})
)
