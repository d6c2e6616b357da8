// Package dispatcher routes named commands to handlers.
//
// Handlers run inline unless registered with Buffered, in which case a
// single worker drains a per-command queue. Close drains every queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName names the meter the dispatcher metrics are created on.
const InstrumentationName = "github.com/weaponcharts/weaponcharts/internal/dispatcher"

// Queued is the result of a command accepted onto its queue.
const Queued = "queued"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrClosed         = errors.New("dispatcher closed")
	ErrQueueFull      = errors.New("queue full")
)

// Event is one command invocation, e.g. a line typed at the prompt.
type Event struct {
	Command   string
	Args      []string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

type route struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(r *route) { r.queueSize = size }
}

// Blocking makes a buffered handler wait for queue space instead of
// dropping the event.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type instruments struct {
	handled metric.Int64Counter
	failed  metric.Int64Counter
	dropped metric.Int64Counter
	depth   metric.Int64ObservableGauge
}

func newInstruments(m metric.Meter) (instruments, error) {
	var ins instruments
	var errs [4]error
	ins.handled, errs[0] = m.Int64Counter("commands.handled",
		metric.WithDescription("Commands whose handler succeeded"))
	ins.failed, errs[1] = m.Int64Counter("commands.failed",
		metric.WithDescription("Commands whose handler returned an error"))
	ins.dropped, errs[2] = m.Int64Counter("commands.dropped",
		metric.WithDescription("Commands rejected by a full queue"))
	ins.depth, errs[3] = m.Int64ObservableGauge("commands.queue.depth",
		metric.WithDescription("Commands waiting in a queue"))
	if err := errors.Join(errs[:]...); err != nil {
		return ins, fmt.Errorf("creating dispatcher instruments: %w", err)
	}
	return ins, nil
}

// Dispatcher routes events to registered handlers. Register all commands
// before the first Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	metrics  instruments

	mu      sync.RWMutex
	queues  map[string]chan Event
	workers sync.WaitGroup
	closed  bool
}

// New creates a Dispatcher. Its counters come from the global meter
// provider, a no-op until otel.New installs one.
func New(logger Logger) (*Dispatcher, error) {
	return newWithMeter(logger, otel.Meter(InstrumentationName))
}

func newWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	ins, err := newInstruments(m)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		metrics:  ins,
		queues:   make(map[string]chan Event),
	}

	_, err = m.RegisterCallback(d.observeQueues, ins.depth)
	if err != nil {
		return nil, fmt.Errorf("registering queue depth callback: %w", err)
	}
	return d, nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, q := range d.queues {
		o.ObserveInt64(d.metrics.depth, int64(len(q)), commandAttr(cmd))
	}
	return nil
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

// Register adds a handler for command. Registering a command again
// replaces its handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var r route
	for _, opt := range opts {
		opt(&r)
	}

	h = d.counted(command, h)
	if r.logged {
		h = d.logged(command, h)
	}
	if r.queueSize > 0 {
		h = d.enqueue(command, r, h)
	}
	d.handlers[command] = h
}

// Dispatch routes an event to its registered handler, stamping it with the
// current time when it has none.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops accepting queued events and waits until every queued event
// has been handled. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) counted(command string, h HandlerFunc) HandlerFunc {
	attr := commandAttr(command)
	return func(e Event) (any, error) {
		result, err := h(e)
		c := d.metrics.handled
		if err != nil {
			c = d.metrics.failed
		}
		c.Add(context.Background(), 1, attr)
		return result, err
	}
}

// enqueue starts the command's worker and returns the handler that feeds it.
// A queue replaced by re-registering the command is closed, so its worker
// finishes the queued events and exits.
func (d *Dispatcher) enqueue(command string, r route, h HandlerFunc) HandlerFunc {
	q := make(chan Event, r.queueSize)

	d.mu.Lock()
	if old, ok := d.queues[command]; ok && !d.closed {
		close(old)
	}
	d.queues[command] = q
	if d.closed {
		close(q)
	}
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q {
			if _, err := h(e); err != nil {
				d.logger.Error("queued command failed", "command", command, "error", err)
			}
		}
	}()

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed || d.queues[command] != q {
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		if r.blocking {
			q <- e
			return Queued, nil
		}
		select {
		case q <- e:
			return Queued, nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, commandAttr(command))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		result, err := h(e)
		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		return result, err
	}
}
