// Command simulator is a stand-in producer for the dashboard. It connects to
// the telemetry listener, streams synthetic sensor readings as
// newline-delimited JSON, and honors the operator commands the dashboard
// sends back over the same connection.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/wire"
)

const (
	sendInterval = 100 * time.Millisecond
	dialTimeout  = 3 * time.Second
	writeTimeout = 2 * time.Second

	spikeChance = 0.02
	faultChance = 0.01
)

type sensorSim struct {
	name  string
	base  float64
	noise float64
	drift float64
}

func defaultSensors() []*sensorSim {
	return []*sensorSim{
		{name: "Temp_C", base: 25.0, noise: 0.4},
		{name: "Pressure_bar", base: 1.7, noise: 0.05},
		{name: "Vibration_mm_s", base: 2.0, noise: 0.3},
		{name: "Speed_rpm", base: 1200.0, noise: 25.0},
		{name: "Optical_count", base: 60.0, noise: 6.0},
	}
}

// next produces one reading. The base drifts slowly; occasional spikes push a
// value well outside the noise band and occasional faults report FAULT status.
func (s *sensorSim) next(rng *rand.Rand) (float64, string) {
	s.drift += rng.NormFloat64() * s.noise * 0.02
	value := s.base + s.drift + rng.NormFloat64()*s.noise

	if rng.Float64() < spikeChance {
		value += s.noise * (6 + rng.Float64()*6)
	}
	status := wire.StatusOK
	if rng.Float64() < faultChance {
		status = wire.StatusFault
	}
	return value, status
}

func (s *sensorSim) reset() {
	s.drift = 0
}

func main() {
	var (
		addr = flag.String("addr", "127.0.0.1:9000", "dashboard listener address")
		seed = flag.Int64("seed", 0, "random seed, 0 derives one from the clock")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	if err := run(*addr, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, seed int64) error {
	log.Printf("simulator starting, target %s, seed %d", addr, seed)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sim := newSimulator(addr, rand.New(rand.NewSource(seed)))
	backoff := time.Second
	for {
		select {
		case s := <-sigCh:
			log.Printf("received %v, exiting", s)
			return nil
		default:
		}

		err := sim.session(sigCh)
		if err == errShutdown {
			return nil
		}
		if err != nil {
			log.Printf("session ended: %v, retrying in %v", err, backoff)
		}
		select {
		case <-sigCh:
			return nil
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

var errShutdown = fmt.Errorf("shutdown requested")

type simulator struct {
	addr    string
	rng     *rand.Rand
	sensors []*sensorSim

	mu     sync.Mutex
	paused bool
}

func newSimulator(addr string, rng *rand.Rand) *simulator {
	return &simulator{addr: addr, rng: rng, sensors: defaultSensors()}
}

// session holds one connection to the dashboard: readings flow out on a fixed
// cadence while a reader goroutine consumes inbound commands. It returns when
// the connection drops or a shutdown signal arrives.
func (s *simulator) session(sigCh <-chan os.Signal) error {
	conn, err := net.DialTimeout("tcp", s.addr, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("connected to %s", conn.RemoteAddr())

	if err := s.writeLog(conn, "simulator connected"); err != nil {
		return err
	}

	readerDone := make(chan error, 1)
	go func() { readerDone <- s.readCommands(conn) }()

	ticker := time.NewTicker(sendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			s.writeLog(conn, "simulator shutting down")
			return errShutdown
		case err := <-readerDone:
			return err
		case <-ticker.C:
			if s.isPaused() {
				continue
			}
			if err := s.writeReadings(conn); err != nil {
				return err
			}
		}
	}
}

// readCommands consumes the dashboard-to-producer side of the connection.
// Returning unblocks the session loop, which tears the connection down.
func (s *simulator) readCommands(conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		frame, ok := wire.Decode(scanner.Text())
		if !ok {
			continue
		}
		cmd, ok := frame.(wire.CommandFrame)
		if !ok {
			continue
		}
		s.handleCommand(conn, cmd)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("dashboard closed the connection")
}

func (s *simulator) handleCommand(conn net.Conn, cmd wire.CommandFrame) {
	log.Printf("command: %s", cmd.Cmd)
	switch cmd.Cmd {
	case wire.CmdPause:
		s.setPaused(true)
		s.writeLog(conn, "simulation paused")
	case wire.CmdResume:
		s.setPaused(false)
		s.writeLog(conn, "simulation resumed")
	case wire.CmdRestart:
		for _, sensor := range s.sensors {
			sensor.reset()
		}
		s.setPaused(false)
		s.writeLog(conn, "simulation restarted")
	case wire.CmdSnapshot:
		s.writeSnapshot(conn)
	case wire.CmdClearAlarms:
		// Alarm state lives on the dashboard side; acknowledge only.
		s.writeLog(conn, "clear alarms acknowledged")
	default:
		s.writeLog(conn, "unknown command: "+cmd.Cmd)
	}
}

func (s *simulator) writeReadings(conn net.Conn) error {
	ts := timestamp()
	for _, sensor := range s.sensors {
		value, status := sensor.next(s.rng)
		line, err := wire.EncodeData(wire.DataFrame{
			Sensor: sensor.name,
			Value:  value,
			TS:     ts,
			Status: status,
		})
		if err != nil {
			return err
		}
		if err := writeLine(conn, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulator) writeSnapshot(conn net.Conn) error {
	sensors := make([]wire.SnapshotSensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		value, status := sensor.next(s.rng)
		sensors = append(sensors, wire.SnapshotSensor{
			Sensor: sensor.name,
			Value:  value,
			Status: status,
			Base:   sensor.base,
			Noise:  sensor.noise,
		})
	}
	line, err := wire.EncodeSnapshot(wire.SnapshotFrame{TS: timestamp(), Sensors: sensors})
	if err != nil {
		return err
	}
	return writeLine(conn, line)
}

func (s *simulator) writeLog(conn net.Conn, message string) error {
	line, err := wire.EncodeLog(wire.LogFrame{TS: timestamp(), Message: message})
	if err != nil {
		return err
	}
	return writeLine(conn, line)
}

func (s *simulator) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *simulator) setPaused(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = v
}

func writeLine(conn net.Conn, line []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := conn.Write(line)
	return err
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
