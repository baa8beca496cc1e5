package mqtt

import (
	"github.com/aliafifi710/production-dashboard/internal/alarm"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Alarms contains all alarm records that were published.
	Alarms []alarm.Record

	// AlarmPayloads contains the JSON payloads that were published.
	AlarmPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishAlarm.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishAlarm records the alarm record.
func (f *FakePublisher) PublishAlarm(rec alarm.Record) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Alarms = append(f.Alarms, rec)

	payload, err := FormatAlarmPayload(rec)
	if err != nil {
		return err
	}
	f.AlarmPayloads = append(f.AlarmPayloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
