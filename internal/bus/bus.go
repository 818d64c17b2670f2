package bus

import (
	"sync"

	"github.com/frostlabs/pulse/internal/streamid"
)

// Handler receives payloads published on topics the bus is subscribed to.
type Handler func(topic streamid.ID, payload any)

// Bus is one logical subscription context: a set of topics received from the
// exchange plus a set of local listeners. All methods are safe for concurrent
// use.
type Bus struct {
	exchange *Exchange

	mu        sync.Mutex
	topics    map[streamid.ID]struct{}
	listeners map[*Listener]struct{}
	disposed  bool
}

// Listener is a cancellation handle for a registered handler. Removal by
// handle avoids the identity pitfalls of removing closures by value.
type Listener struct {
	mu        sync.Mutex
	fn        Handler
	cancelled bool
}

// Cancel detaches the listener. It blocks until any in-flight delivery to
// this listener completes; once Cancel returns the handler is never invoked
// again. Must not be called from inside the handler itself.
func (l *Listener) Cancel() {
	l.mu.Lock()
	l.cancelled = true
	l.fn = nil
	l.mu.Unlock()
}

func (l *Listener) invoke(topic streamid.ID, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancelled {
		return
	}
	l.fn(topic, payload)
}

// Subscribe adds a topic to the set this bus receives from. Idempotent.
func (b *Bus) Subscribe(topic streamid.ID) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	if _, ok := b.topics[topic]; ok {
		b.mu.Unlock()
		return
	}
	b.topics[topic] = struct{}{}
	b.mu.Unlock()

	b.exchange.attach(topic, b)

	// Dispose may have run between the unlock and the attach; its detach
	// would have missed this topic, so undo the attach here.
	b.mu.Lock()
	disposed := b.disposed
	b.mu.Unlock()
	if disposed {
		b.exchange.detach(topic, b)
	}
}

// Unsubscribe removes interest in a topic. Unknown topics are ignored.
func (b *Bus) Unsubscribe(topic streamid.ID) {
	b.mu.Lock()
	if _, ok := b.topics[topic]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.topics, topic)
	b.mu.Unlock()

	b.exchange.detach(topic, b)
}

// Topics returns a snapshot of the subscribed topic set.
func (b *Bus) Topics() []streamid.ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]streamid.ID, 0, len(b.topics))
	for t := range b.topics {
		out = append(out, t)
	}
	return out
}

// AddListener registers a handler and returns its cancellation handle.
// Every listener sees each delivered payload exactly once.
func (b *Bus) AddListener(h Handler) *Listener {
	l := &Listener{fn: h}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		l.cancelled = true
		return l
	}
	b.listeners[l] = struct{}{}
	return l
}

// RemoveListener cancels the listener and drops it from the bus.
func (b *Bus) RemoveListener(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()

	l.Cancel()
}

// ListenerCount returns the number of registered listeners.
func (b *Bus) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Dispose unsubscribes from all topics and cancels all listeners. Publishes
// to this bus afterwards are a no-op. Idempotent.
func (b *Bus) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true

	topics := make([]streamid.ID, 0, len(b.topics))
	for t := range b.topics {
		topics = append(topics, t)
	}
	clear(b.topics)

	listeners := make([]*Listener, 0, len(b.listeners))
	for l := range b.listeners {
		listeners = append(listeners, l)
	}
	clear(b.listeners)
	b.mu.Unlock()

	for _, t := range topics {
		b.exchange.detach(t, b)
	}
	for _, l := range listeners {
		l.Cancel()
	}
}

// deliver fans a payload out to the current listener set.
func (b *Bus) deliver(topic streamid.ID, payload any) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	snapshot := make([]*Listener, 0, len(b.listeners))
	for l := range b.listeners {
		snapshot = append(snapshot, l)
	}
	b.mu.Unlock()

	for _, l := range snapshot {
		l.invoke(topic, payload)
	}
}
