// Package command implements the operator command dispatcher: it validates
// command requests, enforces the connected-producer precondition and queues
// encoded frames for the listener's outbound flush.
package command

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/metric"
	"github.com/aliafifi710/production-dashboard/internal/store"
	"github.com/aliafifi710/production-dashboard/internal/wire"
)

// ErrNotConnected is returned when a command is issued with no producer
// attached. Commands are never queued across a reconnect: they target a
// specific live session.
var ErrNotConnected = errors.New("no producer connected")

// ErrUnknownCommand is returned for command names the producer does not
// understand.
var ErrUnknownCommand = errors.New("unknown command")

// Queue is the outbound sink commands are flushed through. The listener
// implements it.
type Queue interface {
	Enqueue(line []byte)
}

// Dispatcher issues operator commands toward the connected producer.
type Dispatcher struct {
	store   *store.Store
	out     Queue
	metrics *metric.Metrics
	now     func() time.Time
}

// New creates a Dispatcher writing to the given outbound queue.
func New(st *store.Store, out Queue, m *metric.Metrics) *Dispatcher {
	return &Dispatcher{store: st, out: out, metrics: m, now: time.Now}
}

var validNames = map[string]bool{
	wire.CmdRestart:     true,
	wire.CmdSnapshot:    true,
	wire.CmdClearAlarms: true,
	wire.CmdPause:       true,
	wire.CmdResume:      true,
}

// Issue validates, encodes and queues one command for the producer. It is
// rejected with ErrNotConnected while no producer is attached. CLEAR_ALARMS
// always clears the local alarm history first, whether or not the producer
// is reachable; the producer notification is best-effort on top.
func (d *Dispatcher) Issue(name string, payload map[string]any) error {
	if !validNames[name] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	if name == wire.CmdClearAlarms {
		d.store.ClearAlarms()
	}

	if !d.store.Connected() {
		d.metrics.CommandsRejected.Inc()
		log.Printf("command: %s rejected: %v", name, ErrNotConnected)
		return ErrNotConnected
	}

	line, err := wire.EncodeCommand(wire.CommandFrame{
		Cmd:     name,
		TS:      d.now().UTC().Format(time.RFC3339Nano),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	d.out.Enqueue(line)
	log.Printf("command: queued %s", name)
	return nil
}
