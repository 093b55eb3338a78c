package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/cheildo/pong-lobby/internal/metrics"
)

// Sink delivers one event to an external system.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
	Close() error
}

// Dispatcher buffers events from the actors and delivers them to every sink
// on its own goroutine.
type Dispatcher struct {
	queue   chan Event
	sinks   []Sink
	timeout time.Duration
	done    chan struct{}
}

func NewDispatcher(buffer int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{
		queue:   make(chan Event, buffer),
		sinks:   sinks,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Publish enqueues e, dropping it if the buffer is full.
func (d *Dispatcher) Publish(e Event) {
	if len(d.sinks) == 0 {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case d.queue <- e:
	default:
		metrics.EventsDropped.WithLabelValues("buffer_full").Inc()
		slog.Warn("Event buffer full, dropping event", "kind", e.Kind, "matchID", e.MatchID)
	}
}

// Run delivers events until ctx is cancelled, then flushes what is buffered
// and closes the sinks. It should be run in a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("Event dispatcher started", "sinks", len(d.sinks))
	defer close(d.done)
	defer d.closeSinks()

	for {
		select {
		case e := <-d.queue:
			d.deliver(context.Background(), e)
		case <-ctx.Done():
			for {
				select {
				case e := <-d.queue:
					d.deliver(context.Background(), e)
				default:
					slog.Info("Event dispatcher stopped.")
					return
				}
			}
		}
	}
}

// Done is closed after Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Deliver(sctx, e)
		cancel()
		if err != nil {
			metrics.EventsDropped.WithLabelValues("sink_error").Inc()
			slog.Error("Failed to deliver event", "sink", s.Name(), "kind", e.Kind, "matchID", e.MatchID, "error", err)
			continue
		}
		metrics.EventsPublished.WithLabelValues(s.Name()).Inc()
	}
}

func (d *Dispatcher) closeSinks() {
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			slog.Error("Failed to close event sink", "sink", s.Name(), "error", err)
		}
	}
}
