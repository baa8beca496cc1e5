// Package mqtt publishes alarm and lifecycle events to an MQTT broker for
// external observers, with abstraction for testing. Publishing is optional
// and best-effort: a broker failure never disturbs ingestion.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/alarm"
)

// TopicAlarms is the MQTT topic for latched alarm records.
const TopicAlarms = "plant/dashboard/alarms"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "plant/dashboard/system"

// Publisher publishes dashboard events to MQTT.
type Publisher interface {
	// PublishAlarm sends one latched alarm record to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishAlarm(rec alarm.Record) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// producer connect/disconnect).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN", "CONNECTED", "DISCONNECTED"
	Reason    string // e.g. "SIGTERM" (shutdown only)
	Retained  bool   // whether the broker should retain the message
}

// AlarmPayload is the MQTT message payload for an alarm record.
type AlarmPayload struct {
	Alarm AlarmInner `json:"alarm"`
}

// AlarmInner contains the alarm details.
type AlarmInner struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Sensor    string  `json:"sensor"`
	Value     float64 `json:"value"`
	Kind      string  `json:"kind"`
}

// FormatAlarmPayload creates the JSON payload for an alarm record.
func FormatAlarmPayload(rec alarm.Record) ([]byte, error) {
	return json.Marshal(AlarmPayload{
		Alarm: AlarmInner{
			ID:        rec.ID,
			Timestamp: rec.TS,
			Sensor:    rec.Sensor,
			Value:     rec.Value,
			Kind:      string(rec.Kind),
		},
	})
}

// SystemPayload is the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
