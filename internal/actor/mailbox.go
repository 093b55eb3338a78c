// Package actor hosts single-threaded actors: each actor owns its state and
// processes its inbox on one goroutine, one message at a time, in arrival
// order. No locks are needed around actor state.
package actor

import (
	"context"
	"sync"
)

// Mailbox is the inbound channel of one actor plus the goroutine draining it.
type Mailbox[M any] struct {
	inbox    chan M
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start spawns the actor goroutine. handle is only ever called from that
// goroutine. The actor runs until Stop is called or ctx is cancelled.
func Start[M any](ctx context.Context, size int, handle func(M)) *Mailbox[M] {
	if size < 0 {
		size = 0
	}
	m := &Mailbox[M]{
		inbox: make(chan M, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go m.run(ctx, handle)
	return m
}

func (m *Mailbox[M]) run(ctx context.Context, handle func(M)) {
	defer close(m.done)
	for {
		select {
		case msg := <-m.inbox:
			handle(msg)
		case <-ctx.Done():
			return
		case <-m.stop:
			// Drain what was accepted before Stop.
			for {
				select {
				case msg := <-m.inbox:
					handle(msg)
				default:
					return
				}
			}
		}
	}
}

// Send enqueues msg, blocking while the inbox is full. It reports false if
// the actor stopped before the message was accepted.
func (m *Mailbox[M]) Send(msg M) bool {
	select {
	case <-m.stop:
		return false
	case <-m.done:
		return false
	default:
	}
	select {
	case m.inbox <- msg:
		return true
	case <-m.stop:
		return false
	case <-m.done:
		return false
	}
}

// Stop asks the actor to finish the messages it already accepted and exit.
// It does not wait; use Done for that.
func (m *Mailbox[M]) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Done is closed once the actor goroutine has exited.
func (m *Mailbox[M]) Done() <-chan struct{} {
	return m.done
}
