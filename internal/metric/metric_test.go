package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersEverything(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FramesReceived.WithLabelValues("data").Inc()
	m.FramesMalformed.Inc()
	m.AlarmsRaised.Add(3)
	m.Connected.Set(1)

	if got := testutil.ToFloat64(m.FramesReceived.WithLabelValues("data")); got != 1 {
		t.Errorf("frames_received_total{type=data}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AlarmsRaised); got != 3 {
		t.Errorf("alarms_raised_total: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Connected); got != 1 {
		t.Errorf("producer_connected: got %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestNewPanicsOnDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
