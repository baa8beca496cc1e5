package main

import (
	"bufio"
	"math"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/wire"
)

func TestSensorNextFiniteValues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, sensor := range defaultSensors() {
		for i := 0; i < 1000; i++ {
			value, status := sensor.next(rng)
			if math.IsNaN(value) || math.IsInf(value, 0) {
				t.Fatalf("%s: non-finite value at iteration %d", sensor.name, i)
			}
			if status != wire.StatusOK && status != wire.StatusFault {
				t.Fatalf("%s: unexpected status %q", sensor.name, status)
			}
		}
	}
}

func TestSensorResetClearsDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sensor := &sensorSim{name: "Temp_C", base: 25.0, noise: 0.4}
	for i := 0; i < 100; i++ {
		sensor.next(rng)
	}
	sensor.reset()
	if sensor.drift != 0 {
		t.Errorf("drift after reset: got %v, want 0", sensor.drift)
	}
}

func TestHandleCommandPauseResume(t *testing.T) {
	s := newSimulator("ignored", rand.New(rand.NewSource(1)))
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(client)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	s.handleCommand(server, wire.CommandFrame{Cmd: wire.CmdPause})
	if !s.isPaused() {
		t.Error("PAUSE did not pause the simulator")
	}
	s.handleCommand(server, wire.CommandFrame{Cmd: wire.CmdResume})
	if s.isPaused() {
		t.Error("RESUME did not resume the simulator")
	}
	s.handleCommand(server, wire.CommandFrame{Cmd: wire.CmdSnapshot})

	var sawSnapshot bool
	deadline := time.After(3 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case line := <-lines:
			frame, ok := wire.Decode(line)
			if !ok {
				t.Fatalf("simulator wrote a malformed line: %q", line)
			}
			if snap, isSnap := frame.(wire.SnapshotFrame); isSnap {
				sawSnapshot = true
				if len(snap.Sensors) != len(defaultSensors()) {
					t.Errorf("snapshot sensors: got %d, want %d", len(snap.Sensors), len(defaultSensors()))
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for simulator output")
		}
	}
	if !sawSnapshot {
		t.Error("SNAPSHOT_DETAIL produced no snapshot frame")
	}
}

func TestHandleCommandRestartResetsSensors(t *testing.T) {
	s := newSimulator("ignored", rand.New(rand.NewSource(1)))
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	go func() {
		scanner := bufio.NewScanner(client)
		for scanner.Scan() {
		}
	}()

	for i := 0; i < 100; i++ {
		s.sensors[0].next(s.rng)
	}
	s.setPaused(true)
	s.handleCommand(server, wire.CommandFrame{Cmd: wire.CmdRestart})

	if s.sensors[0].drift != 0 {
		t.Error("RESTART_SIM did not reset sensor drift")
	}
	if s.isPaused() {
		t.Error("RESTART_SIM did not resume the simulation")
	}
}
