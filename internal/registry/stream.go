package registry

import (
	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/streamid"
)

// Stream is a named subscription context held in the registry: one Bus plus
// the listeners attached by connections. The registry exclusively owns the
// Stream; sessions hold only listener handles.
type Stream struct {
	id         streamid.ID
	bus        *bus.Bus
	persistent bool
}

// ID returns the stream identifier.
func (s *Stream) ID() streamid.ID {
	return s.id
}

// Persistent reports whether the stream is exempt from ref-count disposal.
func (s *Stream) Persistent() bool {
	return s.persistent
}

// Topics returns the stream's current underlying topic subscriptions.
func (s *Stream) Topics() []streamid.ID {
	return s.bus.Topics()
}

// ListenerCount returns the number of attached listeners.
func (s *Stream) ListenerCount() int {
	return s.bus.ListenerCount()
}
