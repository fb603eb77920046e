package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Defaults for RelayConfig.
const (
	DefaultTick      = 20 * time.Millisecond
	DefaultQueueSize = 64
	DefaultReadSize  = 1024
)

// RelayConfig tunes the relay worker.
type RelayConfig struct {
	// Tick is how long the worker idles when neither side has work.
	Tick time.Duration

	// QueueSize bounds pending outbound messages.
	QueueSize int

	// ReadSize is the per-read buffer size.
	ReadSize int
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ReadSize <= 0 {
		c.ReadSize = DefaultReadSize
	}
	return c
}

// message is a queued outbound write. stop is the sentinel that ends the
// worker.
type message struct {
	data []byte
	stop bool
}

// Relay moves user input into a terminal and terminal output back out as
// line events.
type Relay struct {
	id   uuid.UUID
	conn Conn
	cfg  RelayConfig
	log  *logrus.Entry

	queue chan message
	lines chan string
	done  chan struct{}

	closed   atomic.Bool
	stopOnce sync.Once

	// Worker-owned state.
	dirty   bool
	partial []byte
}

// NewRelay creates a relay for conn. Call Run to start it.
func NewRelay(conn Conn, cfg RelayConfig, log *logrus.Entry) *Relay {
	cfg = cfg.withDefaults()
	id := uuid.New()
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Relay{
		id:    id,
		conn:  conn,
		cfg:   cfg,
		log:   log.WithField("component", "terminal").WithField("relay", id.String()),
		queue: make(chan message, cfg.QueueSize),
		lines: make(chan string, cfg.QueueSize),
		done:  make(chan struct{}),
	}
}

// ID returns the relay's unique identifier.
func (r *Relay) ID() uuid.UUID {
	return r.id
}

// TTY returns the terminal path to bind as the debuggee's tty.
func (r *Relay) TTY() string {
	return r.conn.Name()
}

// Lines returns received output. The channel is closed when Run exits.
func (r *Relay) Lines() <-chan string {
	return r.lines
}

// Done is closed when Run exits.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// Send queues data to be written followed by a newline.
func (r *Relay) Send(data []byte) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}
	msg := message{data: append([]byte(nil), data...)}
	select {
	case r.queue <- msg:
		return nil
	case <-r.done:
		return ErrRelayClosed
	}
}

// Stop queues the stop sentinel. Messages queued before it are written
// first. Stop is safe to call more than once.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		r.closed.Store(true)
		select {
		case r.queue <- message{stop: true}:
		case <-r.done:
		}
	})
}

// Run is the worker loop. It returns nil after the stop sentinel, the
// context error on cancellation, or the first terminal I/O error.
func (r *Relay) Run(ctx context.Context) error {
	defer close(r.done)
	defer close(r.lines)
	defer r.closed.Store(true)

	r.log.Debug("relay started")
	buf := make([]byte, r.cfg.ReadSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		busy := false

		select {
		case msg := <-r.queue:
			if msg.stop {
				r.flush(ctx)
				r.log.Debug("relay stopped")
				return nil
			}
			if _, err := r.conn.Write(append(msg.data, '\n')); err != nil {
				return fmt.Errorf("write %s: %w", r.conn.Name(), err)
			}
			r.dirty = true
			busy = true
		default:
		}

		ready, err := r.conn.Poll(0)
		if err != nil {
			return err
		}
		if !ready {
			r.dirty = false
			r.flush(ctx)
		} else {
			n, err := r.conn.Read(buf)
			if err != nil {
				if errors.Is(err, io.EOF) {
					r.flush(ctx)
					return nil
				}
				return fmt.Errorf("read %s: %w", r.conn.Name(), err)
			}
			if r.dirty {
				r.dirty = false
				r.log.WithField("bytes", n).Debug("discarded echo")
			} else {
				r.receive(ctx, buf[:n])
			}
			busy = true
		}

		if busy {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.Tick):
		}
	}
}

func (r *Relay) receive(ctx context.Context, data []byte) {
	r.partial = append(r.partial, data...)
	for {
		i := bytes.IndexByte(r.partial, '\n')
		if i < 0 {
			return
		}
		line := string(bytes.TrimSuffix(r.partial[:i], []byte{'\r'}))
		r.partial = r.partial[i+1:]
		r.publish(ctx, line)
	}
}

// flush publishes an unterminated trailing line, such as a prompt.
func (r *Relay) flush(ctx context.Context) {
	if len(r.partial) == 0 {
		return
	}
	line := string(r.partial)
	r.partial = r.partial[:0]
	r.publish(ctx, line)
}

func (r *Relay) publish(ctx context.Context, line string) {
	select {
	case r.lines <- line:
	case <-ctx.Done():
	}
}
