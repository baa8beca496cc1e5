package internal

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aliafifi710/production-dashboard/internal/alarm"
	"github.com/aliafifi710/production-dashboard/internal/command"
	"github.com/aliafifi710/production-dashboard/internal/listener"
	"github.com/aliafifi710/production-dashboard/internal/metric"
	"github.com/aliafifi710/production-dashboard/internal/mqtt"
	"github.com/aliafifi710/production-dashboard/internal/store"
	"github.com/aliafifi710/production-dashboard/internal/wire"
)

// TestIntegrationAlarmFlow exercises the complete inbound path with a real TCP
// connection: a producer connects, streams readings including an excursion,
// and disconnects. Events are folded into the store the same way the daemon's
// main loop does it.
func TestIntegrationAlarmFlow(t *testing.T) {
	st, err := store.New([]store.SensorConfig{{Name: "Temp_C", Low: 20, High: 30}})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	metrics := metric.New(prometheus.NewRegistry())
	publisher := mqtt.NewFakePublisher()

	lst := listener.New("127.0.0.1:0", listener.DefaultEventCapacity, metrics)
	if err := lst.Start(); err != nil {
		t.Fatalf("listener.Start: %v", err)
	}
	defer lst.Stop()

	waitLifecycle(t, lst, st, publisher, listener.StateListening)

	conn, err := net.Dial("tcp", lst.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitLifecycle(t, lst, st, publisher, listener.StateConnected)

	if !st.Connected() {
		t.Fatal("store should report connected after the CONNECTED event")
	}

	readings := []struct {
		value float64
		ts    string
	}{
		{25.0, "t1"},
		{35.0, "t2"},
		{36.0, "t3"},
		{22.0, "t4"},
	}
	for _, r := range readings {
		line, err := wire.EncodeData(wire.DataFrame{Sensor: "Temp_C", Value: r.value, TS: r.ts, Status: wire.StatusOK})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if _, err := conn.Write(line); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for i := 0; i < len(readings); i++ {
		ev := nextEvent(t, lst)
		applyEvent(st, publisher, ev, fixedTime())
	}

	records, total := st.SnapshotAlarms(0)
	if total != 1 {
		t.Fatalf("alarm records: got %d, want 1", total)
	}
	rec := records[0]
	if rec.Kind != alarm.KindHigh || rec.Value != 35.0 || rec.TS != "t2" {
		t.Errorf("alarm record: got %+v", rec)
	}
	if len(publisher.Alarms) != 1 {
		t.Errorf("published alarms: got %d, want 1", len(publisher.Alarms))
	}

	snap := st.SnapshotSensors()
	if snap.Sensors[0].Value != 22.0 || snap.Sensors[0].TS != "t4" {
		t.Errorf("final sensor state: got %+v", snap.Sensors[0])
	}

	// The producer goes away: every sensor resets, alarm history survives.
	conn.Close()
	waitLifecycle(t, lst, st, publisher, listener.StateDisconnected)

	snap = st.SnapshotSensors()
	if snap.Sensors[0].HasValue || snap.Sensors[0].TS != "-" {
		t.Errorf("sensor not reset after disconnect: got %+v", snap.Sensors[0])
	}
	if _, total := st.SnapshotAlarms(0); total != 1 {
		t.Errorf("alarm history should survive a disconnect, got %d records", total)
	}
}

// TestIntegrationCommandRoundTrip issues a command through the dispatcher and
// reads it back on the producer side of the connection.
func TestIntegrationCommandRoundTrip(t *testing.T) {
	st, err := store.New([]store.SensorConfig{{Name: "Temp_C", Low: 20, High: 30}})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	metrics := metric.New(prometheus.NewRegistry())
	publisher := mqtt.NewFakePublisher()

	lst := listener.New("127.0.0.1:0", listener.DefaultEventCapacity, metrics)
	if err := lst.Start(); err != nil {
		t.Fatalf("listener.Start: %v", err)
	}
	defer lst.Stop()
	waitLifecycle(t, lst, st, publisher, listener.StateListening)

	dispatcher := command.New(st, lst, metrics)
	if err := dispatcher.Issue(wire.CmdPause, nil); err != command.ErrNotConnected {
		t.Fatalf("Issue while disconnected: got %v, want ErrNotConnected", err)
	}

	conn, err := net.Dial("tcp", lst.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitLifecycle(t, lst, st, publisher, listener.StateConnected)

	if err := dispatcher.Issue(wire.CmdPause, nil); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frame, ok := wire.Decode(string(buf[:n]))
	if !ok {
		t.Fatalf("producer received a malformed line: %q", buf[:n])
	}
	cmd, ok := frame.(wire.CommandFrame)
	if !ok || cmd.Cmd != wire.CmdPause {
		t.Errorf("received frame: got %#v, want PAUSE command", frame)
	}
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func nextEvent(t *testing.T, lst *listener.Listener) listener.Event {
	t.Helper()
	select {
	case ev := <-lst.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a listener event")
		return listener.Event{}
	}
}

// waitLifecycle consumes events until the wanted lifecycle state arrives,
// applying everything to the store along the way.
func waitLifecycle(t *testing.T, lst *listener.Listener, st *store.Store, publisher mqtt.Publisher, want listener.ConnState) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-lst.Events():
			applyEvent(st, publisher, ev, fixedTime())
			if ev.Conn == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for lifecycle state %q", want)
		}
	}
}

// applyEvent mirrors what the daemon's main loop does with each event.
func applyEvent(st *store.Store, publisher mqtt.Publisher, ev listener.Event, now time.Time) {
	switch ev.Conn {
	case listener.StateConnected:
		st.SetConnected(true)
		return
	case listener.StateDisconnected, listener.StateListening:
		st.SetConnected(false)
		return
	}

	if f, ok := ev.Frame.(wire.DataFrame); ok {
		if rec, known := st.Apply(f, now); known && rec != nil {
			publisher.PublishAlarm(*rec)
		}
	}
}
