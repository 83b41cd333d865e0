package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signaling_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaling_online_users",
			Help: "Users currently holding a live connection",
		},
	)

	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_inbound_events_total",
			Help: "Events received from clients",
		},
		[]string{"type"},
	)

	// Deliveries counts directed sends by outcome ("delivered" or "unreachable")
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_deliveries_total",
			Help: "Directed sends by outcome",
		},
		[]string{"type", "outcome"},
	)

	// Business metrics
	CallTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_call_transitions_total",
			Help: "Call record state transitions",
		},
		[]string{"status"},
	)

	RoomMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_room_messages_total",
			Help: "Room messages broadcast",
		},
		[]string{"kind"}, // "durable" or "ephemeral"
	)
)
