// Package metrics defines Prometheus metrics for the gateway.
//
// All collectors are registered with Registry, which the admin server exposes on
// /metrics. Metric naming follows Prometheus conventions:
//   - wsgateway_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every gateway collector plus the Go runtime and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// DispatchTotal counts classified send requests by case.
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wsgateway_dispatch_total",
			Help: "Total number of outbound send requests by dispatch case.",
		},
		[]string{"case"},
	)

	// FramesDeliveredTotal counts frames handed to connection send queues by fan-out mode.
	FramesDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wsgateway_frames_delivered_total",
			Help: "Total number of frames accepted by connection send queues by fan-out mode.",
		},
		[]string{"mode"},
	)

	// FramesDroppedTotal counts frames that never reached the wire.
	FramesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wsgateway_frames_dropped_total",
			Help: "Total number of frames dropped by reason.",
		},
		[]string{"reason"},
	)

	// SerializationFailuresTotal counts generic payloads the formatter could not render.
	SerializationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wsgateway_serialization_failures_total",
			Help: "Total number of generic payloads that failed to serialize.",
		},
	)

	// UnrecognizedBroadcastLevelTotal counts sends from connections with an unknown fan-out level.
	UnrecognizedBroadcastLevelTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wsgateway_unrecognized_broadcast_level_total",
			Help: "Total number of sends skipped because of an unrecognized broadcast level.",
		},
	)

	// ActiveConnections is the number of live inbound connections.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wsgateway_active_connections",
			Help: "Number of live inbound WebSocket connections.",
		},
	)
)

// Drop reasons
const (
	DropQueueFull  = "queue_full"
	DropClosed     = "closed"
	DropWriteError = "write_error"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DispatchTotal,
		FramesDeliveredTotal,
		FramesDroppedTotal,
		SerializationFailuresTotal,
		UnrecognizedBroadcastLevelTotal,
		ActiveConnections,
	)
}

// RecordDispatch increments the dispatch counter for a case.
func RecordDispatch(c string) {
	DispatchTotal.WithLabelValues(c).Inc()
}

// RecordDelivered adds n delivered frames for a fan-out mode.
func RecordDelivered(mode string, n int) {
	if n <= 0 {
		return
	}
	FramesDeliveredTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordDropped increments the dropped-frame counter for a reason.
func RecordDropped(reason string) {
	FramesDroppedTotal.WithLabelValues(reason).Inc()
}
