// Package bus implements the in-process named-topic pub/sub primitive.
//
// An Exchange holds the process-wide topic table. Each Stream owns one Bus,
// which subscribes the stream to a set of topics and fans incoming payloads
// out to its registered listeners.
package bus

import (
	"sync"

	"github.com/frostlabs/pulse/internal/streamid"
	"github.com/rs/zerolog/log"
)

// Exchange routes published payloads to every Bus subscribed to the topic.
type Exchange struct {
	mu     sync.RWMutex
	topics map[streamid.ID]*topicEntry
}

// topicEntry serializes deliveries per topic: all listeners see publish N
// before any listener sees publish N+1 on the same topic.
type topicEntry struct {
	mu    sync.Mutex
	buses map[*Bus]struct{}
}

// NewExchange creates an empty exchange.
func NewExchange() *Exchange {
	return &Exchange{
		topics: make(map[streamid.ID]*topicEntry),
	}
}

// NewBus creates a Bus attached to this exchange with no subscriptions.
func (x *Exchange) NewBus() *Bus {
	return &Bus{
		exchange:  x,
		topics:    make(map[streamid.ID]struct{}),
		listeners: make(map[*Listener]struct{}),
	}
}

// Publish delivers the payload to every bus currently subscribed to topic.
// Publishing to a topic with no subscribers is a silent no-op.
func (x *Exchange) Publish(topic streamid.ID, payload any) {
	x.mu.RLock()
	entry := x.topics[topic]
	x.mu.RUnlock()

	if entry == nil {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	for b := range entry.buses {
		b.deliver(topic, payload)
	}

	log.Trace().Str("topic", topic.String()).Int("buses", len(entry.buses)).Msg("published")
}

func (x *Exchange) attach(topic streamid.ID, b *Bus) {
	x.mu.Lock()
	entry := x.topics[topic]
	if entry == nil {
		entry = &topicEntry{buses: make(map[*Bus]struct{})}
		x.topics[topic] = entry
	}
	x.mu.Unlock()

	entry.mu.Lock()
	entry.buses[b] = struct{}{}
	entry.mu.Unlock()
}

func (x *Exchange) detach(topic streamid.ID, b *Bus) {
	x.mu.Lock()
	entry := x.topics[topic]
	x.mu.Unlock()

	if entry == nil {
		return
	}

	entry.mu.Lock()
	delete(entry.buses, b)
	empty := len(entry.buses) == 0
	entry.mu.Unlock()

	if empty {
		x.mu.Lock()
		if e := x.topics[topic]; e == entry {
			e.mu.Lock()
			if len(e.buses) == 0 {
				delete(x.topics, topic)
			}
			e.mu.Unlock()
		}
		x.mu.Unlock()
	}
}

// TopicCount returns the number of topics with at least one subscribed bus.
func (x *Exchange) TopicCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.topics)
}

// HasSubscribers reports whether any bus is subscribed to topic.
func (x *Exchange) HasSubscribers(topic streamid.ID) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.topics[topic] != nil
}
