package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics defines our Prometheus metrics for the relay.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	FramesReceived    *prometheus.CounterVec
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	HistoryDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Number of currently open websocket connections.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Number of rooms resident in the registry.",
		}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_frames_received_total",
			Help: "Inbound protocol frames by type.",
		}, []string{"type"}),
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_delivered_total",
			Help: "Outbound events delivered to members by type.",
		}, []string{"type"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Outbound events dropped because a member's send buffer was full.",
		}),
		HistoryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_history_fetch_duration_seconds",
			Help:    "Time spent loading message history for join/reconnect.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
