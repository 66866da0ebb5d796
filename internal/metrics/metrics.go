// Package metrics holds the Prometheus registry and the counters exported
// by the display session and the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a custom registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics are the application metrics. A nil *AppMetrics is valid and
// records nothing.
type AppMetrics struct {
	FramesSent       *prometheus.CounterVec // labels: category
	SendFailures     prometheus.Counter
	QueueDepth       prometheus.Gauge
	AcksTotal        *prometheus.CounterVec // labels: category
	Unrecognized     prometheus.Counter
	ConnectAttempts  *prometheus.CounterVec // labels: result=ok|error
	ConnectionStatus *prometheus.GaugeVec   // labels: status, 1 for the current one
	BridgeClients    prometheus.Gauge
}

// NewAppMetrics registers and returns the application metrics
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_frames_sent_total",
			Help: "Frames handed to the transport, by category.",
		}, []string{"category"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdc_send_failures_total",
			Help: "Frames the transport failed to write.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdc_queue_depth",
			Help: "Frames waiting in the dispatcher.",
		}),
		AcksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_acks_total",
			Help: "Recognized acknowledgments, by category.",
		}, []string{"category"}),
		Unrecognized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdc_unrecognized_frames_total",
			Help: "Inbound frames that matched no known acknowledgment.",
		}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_connect_attempts_total",
			Help: "Connection attempts to the display.",
		}, []string{"result"}),
		ConnectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mdc_connection_status",
			Help: "Current connection status (1 for the active status).",
		}, []string{"status"}),
		BridgeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdc_bridge_clients",
			Help: "Connected WebSocket clients.",
		}),
	}
	reg.MustRegister(m.FramesSent, m.SendFailures, m.QueueDepth, m.AcksTotal,
		m.Unrecognized, m.ConnectAttempts, m.ConnectionStatus, m.BridgeClients)
	return m
}

// New is a convenience for NewRegistry plus NewAppMetrics
func New() (*prometheus.Registry, *AppMetrics) {
	reg := NewRegistry()
	return reg, NewAppMetrics(reg)
}

// ObserveSend records one transmission attempt
func (m *AppMetrics) ObserveSend(category string, pending int, err error) {
	if m == nil {
		return
	}
	if category == "" {
		category = "unknown"
	}
	m.FramesSent.WithLabelValues(category).Inc()
	m.QueueDepth.Set(float64(pending))
	if err != nil {
		m.SendFailures.Inc()
	}
}

// ObserveQueue records the current dispatcher depth
func (m *AppMetrics) ObserveQueue(pending int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(pending))
}

// ObserveAck records a classified inbound frame. An empty category counts
// as unrecognized.
func (m *AppMetrics) ObserveAck(category string) {
	if m == nil {
		return
	}
	if category == "" {
		m.Unrecognized.Inc()
		return
	}
	m.AcksTotal.WithLabelValues(category).Inc()
}

// ObserveConnect records the outcome of a dial
func (m *AppMetrics) ObserveConnect(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

// SetStatus marks status as the active connection status
func (m *AppMetrics) SetStatus(status string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		m.ConnectionStatus.WithLabelValues(s).Set(v)
	}
}

// ClientConnected adjusts the bridge client gauge by delta
func (m *AppMetrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.BridgeClients.Add(float64(delta))
}
