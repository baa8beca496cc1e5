// Package wire implements the newline-delimited JSON protocol spoken between
// the sensor producer and the dashboard. Each line is one frame; the codec
// fails closed, so anything that is not a recognized frame is reported as
// malformed and dropped by the caller.
package wire

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Frame type discriminants carried in the "_type" field. Data frames have no
// discriminant and are recognized by their four mandatory keys.
const (
	TypeLog      = "log"
	TypeSnapshot = "snapshot"
	TypeCommand  = "cmd"
)

// Sensor status values after normalization.
const (
	StatusOK    = "OK"
	StatusFault = "FAULT"
)

// Command names understood by the producer.
const (
	CmdRestart     = "RESTART_SIM"
	CmdSnapshot    = "SNAPSHOT_DETAIL"
	CmdClearAlarms = "CLEAR_ALARMS"
	CmdPause       = "PAUSE"
	CmdResume      = "RESUME"
)

// Frame is one decoded protocol message.
type Frame interface {
	frame()
}

// DataFrame is a single sensor reading.
type DataFrame struct {
	Sensor string
	Value  float64
	TS     string
	Status string // StatusOK or StatusFault
}

// LogFrame is an informational message from the producer.
type LogFrame struct {
	TS      string
	Message string
}

// SnapshotSensor is one sensor's entry in a detailed producer snapshot.
type SnapshotSensor struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	Status string  `json:"status"`
	Base   float64 `json:"base"`
	Noise  float64 `json:"noise"`
}

// SnapshotFrame is a detailed snapshot of the producer's internal state.
type SnapshotFrame struct {
	TS      string
	Sensors []SnapshotSensor
}

// CommandFrame is an operator command. The dashboard emits these; the codec
// also recognizes them on the inbound path so an echoing producer cannot
// confuse the stream.
type CommandFrame struct {
	Cmd     string
	TS      string
	Payload map[string]any
}

func (DataFrame) frame()     {}
func (LogFrame) frame()      {}
func (SnapshotFrame) frame() {}
func (CommandFrame) frame()  {}

// NormalizeStatus maps an incoming status string onto StatusOK or
// StatusFault. Anything that is not "OK" (case-insensitive) is untrusted and
// becomes FAULT.
func NormalizeStatus(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), StatusOK) {
		return StatusOK
	}
	return StatusFault
}

// Decode parses one line of the stream. ok is false for anything malformed:
// invalid JSON, missing required fields, or a non-numeric value. Callers must
// drop such lines silently; a lossy producer is expected noise, not an error.
func Decode(line string) (Frame, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var msg map[string]any
	if err := dec.Decode(&msg); err != nil {
		return nil, false
	}

	switch msg["_type"] {
	case TypeLog:
		return decodeLog(msg)
	case TypeSnapshot:
		return decodeSnapshot(msg)
	case TypeCommand:
		return decodeCommand(msg)
	}
	return decodeData(msg)
}

func decodeData(msg map[string]any) (Frame, bool) {
	for _, key := range []string{"sensor", "value", "ts", "status"} {
		if _, ok := msg[key]; !ok {
			return nil, false
		}
	}

	value, ok := toFloat(msg["value"])
	if !ok {
		return nil, false
	}
	sensor := strings.TrimSpace(toString(msg["sensor"]))
	ts := strings.TrimSpace(toString(msg["ts"]))
	if sensor == "" || ts == "" {
		return nil, false
	}

	return DataFrame{
		Sensor: sensor,
		Value:  value,
		TS:     ts,
		Status: NormalizeStatus(toString(msg["status"])),
	}, true
}

func decodeLog(msg map[string]any) (Frame, bool) {
	message, ok := msg["message"].(string)
	if !ok {
		return nil, false
	}
	return LogFrame{TS: toString(msg["ts"]), Message: message}, true
}

func decodeSnapshot(msg map[string]any) (Frame, bool) {
	raw, ok := msg["sensors"].([]any)
	if !ok {
		return nil, false
	}

	sensors := make([]SnapshotSensor, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		value, ok := toFloat(m["value"])
		if !ok {
			continue
		}
		base, _ := toFloat(m["base"])
		noise, _ := toFloat(m["noise"])
		sensors = append(sensors, SnapshotSensor{
			Sensor: strings.TrimSpace(toString(m["sensor"])),
			Value:  value,
			Status: NormalizeStatus(toString(m["status"])),
			Base:   base,
			Noise:  noise,
		})
	}

	return SnapshotFrame{TS: toString(msg["ts"]), Sensors: sensors}, true
}

func decodeCommand(msg map[string]any) (Frame, bool) {
	cmd := strings.TrimSpace(toString(msg["cmd"]))
	if cmd == "" {
		return nil, false
	}
	payload, _ := msg["payload"].(map[string]any)
	return CommandFrame{Cmd: cmd, TS: toString(msg["ts"]), Payload: payload}, true
}

// toFloat coerces a decoded JSON value into a finite float64. Numeric strings
// are accepted; the original producer is loose about quoting.
func toFloat(v any) (float64, bool) {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
