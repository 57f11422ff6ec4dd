// Package bus is the lifecycle signal mediator between the training
// loop and its callbacks. It is an explicitly constructed dependency
// threaded through component constructors, never a hidden global.
//
// Dispatch is single-threaded and cooperative: Publish enqueues a
// signal and synchronously drains the pending queue on the caller's
// goroutine. A signal emitted from inside a receiver is enqueued and
// delivered after the current signal's receivers finish, never inline,
// so dispatch cannot recurse. Receiver panics are not caught: a corrupt
// lifecycle state must not proceed silently.
package bus

// Kind tags an event variant. Every variant carries a fixed,
// statically-typed payload struct (see events.go).
type Kind string

// Payload is the typed argument record of a signal.
type Payload interface {
	Kind() Kind
}

// Signal is an immutable named event queued for dispatch. It is
// consumed exactly once by the dispatch pass that pops it.
type Signal struct {
	Payload Payload
}

// Kind returns the event variant of the signal.
func (s Signal) Kind() Kind { return s.Payload.Kind() }

// Handler receives signals of the kind it was connected for. Handlers
// built with On assert the payload to their declared variant; a
// mismatch is a programming error and panics immediately.
type Handler func(Payload)

// Bus holds subscriptions and the pending-signal queue. Subscriptions
// are registered at component construction time and never removed; the
// table is read-only during dispatch.
type Bus struct {
	subs        map[Kind][]Handler
	pending     []Signal
	dispatching bool
}

// New builds an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind][]Handler)}
}

// Connect registers h for signals of kind k. Delivery order among
// receivers of the same kind is registration order. Duplicate
// registration yields duplicate delivery; connecting is not
// deduplicated.
func (b *Bus) Connect(k Kind, h Handler) {
	b.subs[k] = append(b.subs[k], h)
}

// On registers a typed handler for the payload variant T.
func On[T Payload](b *Bus, fn func(T)) {
	var zero T
	b.Connect(zero.Kind(), func(p Payload) {
		fn(p.(T))
	})
}

// Emit enqueues a signal without dispatching it.
func (b *Bus) Emit(p Payload) {
	b.pending = append(b.pending, Signal{Payload: p})
}

// Dispatch pops pending signals in FIFO order and delivers each to all
// receivers registered for its kind, in registration order. Signals
// with no receiver are dropped silently. A Dispatch entered while a
// dispatch pass is already draining is a no-op: signals emitted by
// receivers are delivered by the outer pass once the current signal's
// receivers complete.
func (b *Bus) Dispatch() {
	if b.dispatching {
		return
	}
	b.dispatching = true
	defer func() { b.dispatching = false }()
	for len(b.pending) > 0 {
		sig := b.pending[0]
		b.pending = b.pending[1:]
		for _, h := range b.subs[sig.Kind()] {
			h(sig.Payload)
		}
	}
}

// Publish emits p and immediately dispatches the queue.
func (b *Bus) Publish(p Payload) {
	b.Emit(p)
	b.Dispatch()
}
