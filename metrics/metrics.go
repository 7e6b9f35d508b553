package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds relay counters and exposes them to Prometheus.
type Metrics struct {
	// Frame traffic
	FramesReceived atomic.Uint64
	FramesRejected atomic.Uint64
	FramesEmitted  atomic.Uint64
	FramesPulled   atomic.Uint64

	// Upstream pullers reading a camera's registered stream
	ActiveUpstreams atomic.Int64
	UpstreamErrors  atomic.Uint64

	// Stream consumers
	ActiveStreams atomic.Int64
	TotalStreams  atomic.Uint64
	StreamErrors  atomic.Uint64

	// Alarm transitions
	AlarmsTriggered atomic.Uint64
	AlarmsCleared   atomic.Uint64
	AlarmsAutoClear atomic.Uint64
	Heartbeats      atomic.Uint64

	// Mailbox
	CommandsPublished atomic.Uint64
	CommandsDelivered atomic.Uint64

	// Liveness scanning
	LivenessScans  atomic.Uint64
	LivenessFaults atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) registerPrometheusMetrics() {
	m.counter("camrelay_frames_received_total", "Frames accepted from cameras", &m.FramesReceived)
	m.counter("camrelay_frames_rejected_total", "Frames rejected at the relay boundary", &m.FramesRejected)
	m.counter("camrelay_frames_emitted_total", "Frames written to stream consumers", &m.FramesEmitted)
	m.counter("camrelay_frames_pulled_total", "Frames read from registered camera streams", &m.FramesPulled)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camrelay_active_upstreams",
			Help: "Registered camera streams currently being pulled",
		},
		func() float64 { return float64(m.ActiveUpstreams.Load()) },
	))
	m.counter("camrelay_upstream_errors_total", "Registered camera streams that could not be dialed or broke", &m.UpstreamErrors)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camrelay_active_streams",
			Help: "Stream consumers currently connected",
		},
		func() float64 { return float64(m.ActiveStreams.Load()) },
	))
	m.counter("camrelay_streams_total", "Stream consumers ever connected", &m.TotalStreams)
	m.counter("camrelay_stream_errors_total", "Streams that could not start or broke mid-stream", &m.StreamErrors)

	m.counter("camrelay_alarms_triggered_total", "Alarm triggers", &m.AlarmsTriggered)
	m.counter("camrelay_alarms_cleared_total", "Explicit alarm clears", &m.AlarmsCleared)
	m.counter("camrelay_alarms_auto_cleared_total", "Alarms cleared because the camera went silent", &m.AlarmsAutoClear)
	m.counter("camrelay_heartbeats_total", "Camera heartbeats", &m.Heartbeats)

	m.counter("camrelay_commands_published_total", "Commands written to the mailbox", &m.CommandsPublished)
	m.counter("camrelay_commands_delivered_total", "Commands taken by a dashboard poll", &m.CommandsDelivered)

	m.counter("camrelay_liveness_scans_total", "Liveness scans completed", &m.LivenessScans)
	m.counter("camrelay_liveness_faults_total", "Per-camera faults recovered during liveness scans", &m.LivenessFaults)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
