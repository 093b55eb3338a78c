package actor

import (
	"context"
	"sync"
)

type entry[M any] struct {
	mailbox *Mailbox[M]
	refs    int
}

// Registry maps logical ids to actors. An actor is spawned the first time
// its id is acquired and reclaimed when the last holder releases it; its
// state does not survive reclamation.
type Registry[M any] struct {
	ctx       context.Context
	size      int
	spawn     func(id string) func(M)
	onReclaim func(id string)

	mu     sync.Mutex
	actors map[string]*entry[M]
}

// RegistryOption customizes a Registry.
type RegistryOption[M any] func(*Registry[M])

// WithReclaimHook registers fn to run after an actor is reclaimed.
func WithReclaimHook[M any](fn func(id string)) RegistryOption[M] {
	return func(r *Registry[M]) { r.onReclaim = fn }
}

// NewRegistry creates a registry whose actors get an inbox of size
// messages. spawn builds the handler (and the state it closes over) for a
// freshly instantiated id.
func NewRegistry[M any](ctx context.Context, size int, spawn func(id string) func(M), opts ...RegistryOption[M]) *Registry[M] {
	r := &Registry[M]{
		ctx:    ctx,
		size:   size,
		spawn:  spawn,
		actors: make(map[string]*entry[M]),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the actor for id, instantiating it if needed. Every
// Acquire must be paired with a Release.
func (r *Registry[M]) Acquire(id string) *Mailbox[M] {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.actors[id]
	if !ok {
		e = &entry[M]{mailbox: Start(r.ctx, r.size, r.spawn(id))}
		r.actors[id] = e
	}
	e.refs++
	return e.mailbox
}

// Release drops one reference to id. The last release stops the actor
// after it drains its inbox.
func (r *Registry[M]) Release(id string) {
	r.mu.Lock()
	e, ok := r.actors[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.actors, id)
	r.mu.Unlock()

	e.mailbox.Stop()
	if r.onReclaim != nil {
		r.onReclaim(id)
	}
}

// Len reports the number of live actors.
func (r *Registry[M]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}

// Close stops every live actor.
func (r *Registry[M]) Close() {
	r.mu.Lock()
	actors := r.actors
	r.actors = make(map[string]*entry[M])
	r.mu.Unlock()

	for id, e := range actors {
		e.mailbox.Stop()
		if r.onReclaim != nil {
			r.onReclaim(id)
		}
	}
}
