package wire

import "encoding/json"

type dataJSON struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	TS     string  `json:"ts"`
	Status string  `json:"status"`
}

type logJSON struct {
	Type    string `json:"_type"`
	TS      string `json:"ts"`
	Message string `json:"message"`
}

type snapshotJSON struct {
	Type    string           `json:"_type"`
	TS      string           `json:"ts"`
	Sensors []SnapshotSensor `json:"sensors"`
}

type commandJSON struct {
	Type    string         `json:"_type"`
	Cmd     string         `json:"cmd"`
	TS      string         `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EncodeCommand serializes a command as one newline-terminated JSON line.
func EncodeCommand(f CommandFrame) ([]byte, error) {
	return encodeLine(commandJSON{Type: TypeCommand, Cmd: f.Cmd, TS: f.TS, Payload: f.Payload})
}

// EncodeData serializes a sensor reading. Used by the producer side.
func EncodeData(f DataFrame) ([]byte, error) {
	return encodeLine(dataJSON{Sensor: f.Sensor, Value: f.Value, TS: f.TS, Status: f.Status})
}

// EncodeLog serializes an informational message. Used by the producer side.
func EncodeLog(f LogFrame) ([]byte, error) {
	return encodeLine(logJSON{Type: TypeLog, TS: f.TS, Message: f.Message})
}

// EncodeSnapshot serializes a detailed snapshot. Used by the producer side.
func EncodeSnapshot(f SnapshotFrame) ([]byte, error) {
	return encodeLine(snapshotJSON{Type: TypeSnapshot, TS: f.TS, Sensors: f.Sensors})
}

func encodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
