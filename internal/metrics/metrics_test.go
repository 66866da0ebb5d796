package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *AppMetrics
	m.ObserveSend("power", 1, nil)
	m.ObserveQueue(2)
	m.ObserveAck("")
	m.ObserveConnect(errors.New("x"))
	m.SetStatus("connected", []string{"connected"})
	m.ClientConnected(1)
}

func TestObserveSend(t *testing.T) {
	m := NewAppMetrics(prometheus.NewRegistry())

	m.ObserveSend("power", 2, nil)
	m.ObserveSend("power", 1, errors.New("not connected"))
	m.ObserveSend("", 0, nil)

	if got := testutil.ToFloat64(m.FramesSent.WithLabelValues("power")); got != 2 {
		t.Errorf("frames sent{power} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FramesSent.WithLabelValues("unknown")); got != 1 {
		t.Errorf("frames sent{unknown} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SendFailures); got != 1 {
		t.Errorf("send failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 0 {
		t.Errorf("queue depth = %v, want 0", got)
	}
}

func TestObserveAck(t *testing.T) {
	m := NewAppMetrics(prometheus.NewRegistry())

	m.ObserveAck("volume")
	m.ObserveAck("")
	m.ObserveAck("")

	if got := testutil.ToFloat64(m.AcksTotal.WithLabelValues("volume")); got != 1 {
		t.Errorf("acks{volume} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Unrecognized); got != 2 {
		t.Errorf("unrecognized = %v, want 2", got)
	}
}

func TestSetStatus(t *testing.T) {
	m := NewAppMetrics(prometheus.NewRegistry())
	all := []string{"disconnected", "connecting", "connected", "error"}

	m.SetStatus("connecting", all)
	m.SetStatus("connected", all)

	for _, s := range all {
		want := 0.0
		if s == "connected" {
			want = 1
		}
		if got := testutil.ToFloat64(m.ConnectionStatus.WithLabelValues(s)); got != want {
			t.Errorf("status{%s} = %v, want %v", s, got, want)
		}
	}
}

func TestHandlerServesAppMetrics(t *testing.T) {
	reg, m := New()
	m.ObserveConnect(nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mdc_connect_attempts_total{result="ok"} 1`) {
		t.Errorf("metrics output missing connect counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing Go collector")
	}
}
