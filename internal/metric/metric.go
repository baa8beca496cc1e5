// Package metric defines the Prometheus instrumentation for the dashboard.
package metric

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every dashboard metric, registered on a single registry.
type Metrics struct {
	FramesReceived   *prometheus.CounterVec // by frame type
	FramesMalformed  prometheus.Counter
	UnknownSensor    prometheus.Counter
	EventsDropped    prometheus.Counter
	AlarmsRaised     prometheus.Counter
	CommandsSent     prometheus.Counter
	CommandsRejected prometheus.Counter
	Disconnects      prometheus.Counter
	Connected        prometheus.Gauge
	InboundQueue     prometheus.Gauge
}

// New creates the metric set and registers it on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "frames_received_total",
			Help:      "Frames decoded from the producer stream.",
		}, []string{"type"}),
		FramesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "frames_malformed_total",
			Help:      "Lines dropped as protocol noise (bad JSON, missing fields).",
		}),
		UnknownSensor: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "readings_unknown_sensor_total",
			Help:      "Readings dropped because the sensor is not configured.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "inbound_events_dropped_total",
			Help:      "Inbound events lost to the drop-oldest overflow policy.",
		}),
		AlarmsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "alarms_raised_total",
			Help:      "Alarm records created on latch edges.",
		}),
		CommandsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "commands_sent_total",
			Help:      "Commands flushed to the producer.",
		}),
		CommandsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "commands_rejected_total",
			Help:      "Commands rejected because no producer was connected.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "producer_disconnects_total",
			Help:      "Producer connection teardowns.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "producer_connected",
			Help:      "1 while a producer connection is active.",
		}),
		InboundQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "inbound_queue_depth",
			Help:      "Events waiting on the inbound channel.",
		}),
	}

	reg.MustRegister(
		m.FramesReceived,
		m.FramesMalformed,
		m.UnknownSensor,
		m.EventsDropped,
		m.AlarmsRaised,
		m.CommandsSent,
		m.CommandsRejected,
		m.Disconnects,
		m.Connected,
		m.InboundQueue,
	)
	return m
}
