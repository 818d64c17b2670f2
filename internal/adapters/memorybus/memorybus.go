// Package memorybus is an in-process ports.DomainBus for tests and
// standalone (no Redis) deployments. Delivery is synchronous and
// best-effort, mirroring the Redis adapter's semantics within one process.
package memorybus

import (
	"context"
	"sync"

	"github.com/frostlabs/pulse/internal/domain/ports"
)

// Bus fans published payloads out to every subscription bound to the
// channel. Safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	bus      *Bus
	handler  ports.DomainHandler
	channels map[string]struct{}

	mu     sync.Mutex
	closed bool
}

// New creates an empty in-memory domain bus.
func New() *Bus {
	return &Bus{subs: make(map[*subscription]struct{})}
}

// Publish delivers the payload to every subscription bound to channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		if _, ok := s.channels[channel]; ok {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.deliver(channel, payload)
	}
	return nil
}

// Subscribe binds the handler to the given channels.
func (b *Bus) Subscribe(ctx context.Context, handler ports.DomainHandler, channels ...string) (ports.DomainSubscription, error) {
	s := &subscription{
		bus:      b,
		handler:  handler,
		channels: make(map[string]struct{}, len(channels)),
	}
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s, nil
}

func (s *subscription) deliver(channel string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.handler(channel, payload)
}

// Close detaches the subscription. Idempotent.
func (s *subscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	return nil
}
