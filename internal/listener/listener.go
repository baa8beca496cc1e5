// Package listener owns the TCP server socket for the telemetry stream. It
// accepts at most one producer connection at a time, reassembles the
// newline-delimited frames, forwards them on the inbound event channel in
// arrival order, and flushes queued operator commands back to the producer.
// Peer failures never stop the worker; only Stop does.
package listener

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/metric"
	"github.com/aliafifi710/production-dashboard/internal/wire"
)

// ConnState is a connection lifecycle transition.
type ConnState string

const (
	StateListening    ConnState = "LISTENING"
	StateConnected    ConnState = "CONNECTED"
	StateDisconnected ConnState = "DISCONNECTED"
)

// Event is one entry on the inbound channel: either a decoded frame or a
// lifecycle transition, never both.
type Event struct {
	Frame wire.Frame // nil for lifecycle events
	Conn  ConnState  // "" for frame events
}

// DefaultEventCapacity bounds the inbound channel. The consumer drains every
// tick, so the channel stays near empty unless the consumer stalls; past
// capacity the oldest event is dropped.
const DefaultEventCapacity = 1024

const (
	acceptPoll = 250 * time.Millisecond
	readPoll   = 50 * time.Millisecond
	writeWait  = 2 * time.Second
)

// Listener is the network worker. Create with New, then Start; it runs in
// its own goroutine until Stop.
type Listener struct {
	addr    string
	events  chan Event
	metrics *metric.Metrics

	mu       sync.Mutex
	outbound [][]byte

	ln   net.Listener
	stop chan struct{}
	done chan struct{}
}

// New creates a Listener bound to addr with the given inbound channel
// capacity (0 means DefaultEventCapacity).
func New(addr string, eventCap int, m *metric.Metrics) *Listener {
	if eventCap <= 0 {
		eventCap = DefaultEventCapacity
	}
	return &Listener{
		addr:    addr,
		events:  make(chan Event, eventCap),
		metrics: m,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Events returns the inbound event channel. Frames from one connection are
// delivered in arrival order.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Addr returns the bound address. Only valid after Start.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Enqueue appends one encoded command line for the next outbound flush.
func (l *Listener) Enqueue(line []byte) {
	l.mu.Lock()
	l.outbound = append(l.outbound, line)
	l.mu.Unlock()
}

// Start binds the server socket, emits the initial LISTENING event and
// launches the accept loop. It returns once the socket is listening.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.ln = ln
	log.Printf("listener: listening on %s", ln.Addr())
	l.publish(Event{Conn: StateListening})
	go l.acceptLoop()
	return nil
}

// Stop signals shutdown and waits for the worker to exit. The stop signal is
// polled on every accept timeout and every read poll, so shutdown latency is
// bounded.
func (l *Listener) Stop() {
	close(l.stop)
	l.ln.Close()
	<-l.done
}

func (l *Listener) acceptLoop() {
	defer close(l.done)

	tcpLn := l.ln.(*net.TCPListener)
	for {
		if l.stopped() {
			return
		}
		tcpLn.SetDeadline(time.Now().Add(acceptPoll))
		conn, err := tcpLn.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if l.stopped() {
				return
			}
			log.Printf("listener: accept error: %v", err)
			continue
		}

		log.Printf("listener: producer connected from %s", conn.RemoteAddr())
		l.publish(Event{Conn: StateConnected})
		l.serve(conn)
		conn.Close()

		// Commands target a specific live session; whatever was still
		// queued dies with the connection.
		l.dropOutbound()

		if l.stopped() {
			return
		}
		log.Printf("listener: producer disconnected, listening again")
		l.publish(Event{Conn: StateDisconnected})
		l.publish(Event{Conn: StateListening})
	}
}

// serve runs the read/flush loop for one producer connection. It returns on
// end-of-stream, a read error, a write failure past one retry, or shutdown.
func (l *Listener) serve(conn net.Conn) {
	buf := make([]byte, 4096)
	var partial []byte

	for {
		if l.stopped() {
			return
		}

		if !l.flushOutbound(conn) {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readPoll))
		n, err := conn.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			partial = l.forwardLines(partial)
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				log.Printf("listener: producer closed the connection")
			} else {
				log.Printf("listener: read error: %v", err)
			}
			return
		}
	}
}

// forwardLines splits completed lines off the accumulation buffer, decodes
// them and publishes the frames in arrival order. The trailing partial line
// is returned so it carries over to the next read.
func (l *Listener) forwardLines(acc []byte) []byte {
	for {
		i := bytes.IndexByte(acc, '\n')
		if i < 0 {
			return acc
		}
		line := string(acc[:i])
		acc = acc[i+1:]

		frame, ok := wire.Decode(line)
		if !ok {
			// Expected noise from a lossy producer; dropped silently.
			l.metrics.FramesMalformed.Inc()
			continue
		}
		l.metrics.FramesReceived.WithLabelValues(frameLabel(frame)).Inc()
		l.publish(Event{Frame: frame})
	}
}

// flushOutbound writes every queued command line. A failed write is retried
// once, resuming after any bytes the first attempt got out so the producer
// never sees a duplicated prefix; a second failure reports false and the
// caller tears the connection down.
func (l *Listener) flushOutbound(conn net.Conn) bool {
	for {
		line := l.dequeueOutbound()
		if line == nil {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if n, err := conn.Write(line); err != nil {
			log.Printf("listener: command write failed, retrying: %v", err)
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := conn.Write(line[n:]); err != nil {
				log.Printf("listener: command write retry failed: %v", err)
				return false
			}
		}
		l.metrics.CommandsSent.Inc()
	}
}

func (l *Listener) dequeueOutbound() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.outbound) == 0 {
		return nil
	}
	line := l.outbound[0]
	l.outbound = l.outbound[1:]
	return line
}

func (l *Listener) dropOutbound() {
	l.mu.Lock()
	dropped := len(l.outbound)
	l.outbound = nil
	l.mu.Unlock()
	if dropped > 0 {
		log.Printf("listener: dropped %d queued commands on disconnect", dropped)
	}
}

// publish delivers an event with drop-oldest overflow: if the consumer has
// stalled and the channel is full, the oldest queued frame event is discarded
// to make room. Lifecycle events are never evicted; losing a DISCONNECTED
// would lose the all-sensor reset it carries. A frame arriving while the
// queue holds nothing but lifecycle events is dropped itself.
func (l *Listener) publish(ev Event) {
	for {
		select {
		case l.events <- ev:
			l.metrics.InboundQueue.Set(float64(len(l.events)))
			return
		default:
		}
		if !l.evictOldest(ev.Conn != "") {
			l.metrics.EventsDropped.Inc()
			return
		}
	}
}

// evictOldest makes room in a full channel by removing the oldest frame
// event, preserving the relative order of everything kept. When the queue
// holds only lifecycle events, the oldest of those goes if the incoming
// event is itself a lifecycle transition; otherwise nothing is evicted and
// the caller drops the incoming frame. The listener is the only sender, so
// requeueing the held events cannot block.
func (l *Listener) evictOldest(lifecycle bool) bool {
	var held []Event
drain:
	for {
		select {
		case ev := <-l.events:
			held = append(held, ev)
		default:
			break drain
		}
	}
	if len(held) == 0 {
		// The consumer freed space concurrently.
		return true
	}

	drop := -1
	for i, ev := range held {
		if ev.Conn == "" {
			drop = i
			break
		}
	}
	if drop < 0 {
		if !lifecycle {
			for _, ev := range held {
				l.events <- ev
			}
			return false
		}
		drop = 0
	}

	l.metrics.EventsDropped.Inc()
	held = append(held[:drop], held[drop+1:]...)
	for _, ev := range held {
		l.events <- ev
	}
	return true
}

func (l *Listener) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

func frameLabel(f wire.Frame) string {
	switch f.(type) {
	case wire.DataFrame:
		return "data"
	case wire.LogFrame:
		return "log"
	case wire.SnapshotFrame:
		return "snapshot"
	case wire.CommandFrame:
		return "cmd"
	default:
		return "unknown"
	}
}
