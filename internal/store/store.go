// Package store provides the thread-safe telemetry store shared between the
// network listener's consumer loop and every reader (render tick, query API).
// All state lives behind one RWMutex; every operation applies atomically and
// snapshots reflect a single consistent instant.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliafifi710/production-dashboard/internal/alarm"
	"github.com/aliafifi710/production-dashboard/internal/wire"
)

// Capacities of the bounded history buffers.
const (
	SampleHistoryCap = 600
	AlarmHistoryCap  = 500
)

// System status values, lowest to highest display precedence.
const (
	SystemListening = "LISTENING"
	SystemConnected = "CONNECTED"
	SystemOK        = "OK"
	SystemWarning   = "WARNING"
	SystemAlarm     = "ALARM"
)

// StatusNA is the per-sensor status shown before any reading arrives.
const StatusNA = "N/A"

// SensorConfig describes one configured sensor and its alarm limits. This is
// a local copy of the config shape so the store does not depend on the config
// package.
type SensorConfig struct {
	Name string
	Low  float64
	High float64
}

// Sample is one point of per-sensor history kept for windowed plots.
type Sample struct {
	Time  time.Time
	Value float64
}

// sensorState is the mutable per-sensor state. Only the ingestion path
// mutates it, always under the Store lock.
type sensorState struct {
	limits   alarm.Limits
	value    float64
	hasValue bool
	ts       string
	status   string
	latch    alarm.Latch
	history  *ring[Sample]
}

func (st *sensorState) reset() {
	st.value = 0
	st.hasValue = false
	st.ts = "-"
	st.status = StatusNA
	st.latch.Reset()
	st.history.reset()
}

// SensorSnapshot is a point-in-time copy of one sensor's state. It is a
// value type — safe to use after the lock is released.
type SensorSnapshot struct {
	Name     string
	Low      float64
	High     float64
	Value    float64
	HasValue bool
	TS       string
	Status   string
	InAlarm  bool
	History  []Sample
}

// Snapshot is the aggregate view returned to consumers.
type Snapshot struct {
	SystemStatus string
	Sensors      []SensorSnapshot
	AlarmCount   int
}

// Store is the single point of truth for live telemetry state.
type Store struct {
	mu        sync.RWMutex
	order     []string // configured sensor order, stable for display
	sensors   map[string]*sensorState
	alarms    *ring[alarm.Record]
	connected bool
}

// New creates a Store with one state slot per configured sensor. Duplicate
// sensor names are a configuration error.
func New(sensors []SensorConfig) (*Store, error) {
	s := &Store{
		sensors: make(map[string]*sensorState, len(sensors)),
		alarms:  newRing[alarm.Record](AlarmHistoryCap),
	}
	for _, sc := range sensors {
		if _, dup := s.sensors[sc.Name]; dup {
			return nil, fmt.Errorf("duplicate sensor name %q", sc.Name)
		}
		st := &sensorState{
			limits:  alarm.Limits{Low: sc.Low, High: sc.High},
			history: newRing[Sample](SampleHistoryCap),
		}
		st.reset()
		s.order = append(s.order, sc.Name)
		s.sensors[sc.Name] = st
	}
	return s, nil
}

// Apply ingests one reading: last-write-wins update, history append and
// alarm latch evaluation under a single lock acquisition. The returned
// record is non-nil only on a false→true latch edge. Readings for sensors
// not in the configured set are dropped without mutating anything; known
// reports whether the sensor exists.
func (s *Store) Apply(r wire.DataFrame, now time.Time) (rec *alarm.Record, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sensors[r.Sensor]
	if !ok {
		return nil, false
	}

	st.value = r.Value
	st.hasValue = true
	st.ts = r.TS
	st.status = r.Status
	st.history.push(Sample{Time: now, Value: r.Value})

	kind := alarm.Evaluate(r.Value, true, st.limits, r.Status == wire.StatusOK)
	if st.latch.Observe(kind) {
		rec = &alarm.Record{
			ID:     uuid.NewString(),
			TS:     r.TS,
			Sensor: r.Sensor,
			Value:  r.Value,
			Kind:   kind,
		}
		s.alarms.push(*rec)
	}
	return rec, true
}

// AppendAlarm appends a record directly, evicting the oldest past capacity.
// The normal path is Apply; this exists for alarm sources outside the
// reading stream.
func (s *Store) AppendAlarm(rec alarm.Record) {
	s.mu.Lock()
	s.alarms.push(rec)
	s.mu.Unlock()
}

// ClearAlarms drops all retained alarm history.
func (s *Store) ClearAlarms() {
	s.mu.Lock()
	s.alarms.reset()
	s.mu.Unlock()
}

// SetConnected records the producer connection state. The connected→false
// transition resets every sensor to its initial state in one atomic step.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected && !connected {
		s.resetAllLocked()
	}
	s.connected = connected
}

// resetAllLocked returns every sensor to its initial empty state. All
// sensors reset together, never partially.
func (s *Store) resetAllLocked() {
	for _, st := range s.sensors {
		st.reset()
	}
}

// Connected reports whether a producer is currently attached. The command
// dispatcher uses this as its issue precondition.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SnapshotSensors returns a consistent point-in-time view of every sensor,
// the derived system status and the retained alarm count.
func (s *Store) SnapshotSensors() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Sensors:    make([]SensorSnapshot, 0, len(s.order)),
		AlarmCount: s.alarms.len(),
	}

	var anyAlarm, anyFault, anyOK bool
	for _, name := range s.order {
		st := s.sensors[name]
		inAlarm := st.latch.InAlarm()
		switch {
		case inAlarm:
			anyAlarm = true
		case st.status == wire.StatusFault:
			anyFault = true
		}
		if st.status == wire.StatusOK {
			anyOK = true
		}
		snap.Sensors = append(snap.Sensors, SensorSnapshot{
			Name:     name,
			Low:      st.limits.Low,
			High:     st.limits.High,
			Value:    st.value,
			HasValue: st.hasValue,
			TS:       st.ts,
			Status:   st.status,
			InAlarm:  inAlarm,
			History:  st.history.items(),
		})
	}

	snap.SystemStatus = systemStatus(anyAlarm, anyFault, anyOK, s.connected)
	return snap
}

// SnapshotAlarms returns up to limit of the most recent alarm records
// (oldest first) and the total retained count. limit <= 0 returns all.
func (s *Store) SnapshotAlarms(limit int) (records []alarm.Record, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alarms.lastN(limit), s.alarms.len()
}

// systemStatus derives the global status by precedence: any sensor in alarm
// beats any faulty sensor, which beats healthy data, which beats a connected
// but silent producer.
func systemStatus(anyAlarm, anyFault, anyOK, connected bool) string {
	switch {
	case anyAlarm:
		return SystemAlarm
	case anyFault:
		return SystemWarning
	case anyOK:
		return SystemOK
	case connected:
		return SystemConnected
	default:
		return SystemListening
	}
}
