package ports

import "context"

// DomainHandler receives one domain event from the cross-process medium.
type DomainHandler func(channel string, payload []byte)

// DomainSubscription is a live binding to a set of domain-event channels.
type DomainSubscription interface {
	Close() error
}

// DomainBus is the cross-process broadcast medium (Redis Pub/Sub in
// production, in-memory in tests and standalone mode). Delivery is
// best-effort: at-most-once per process per message, duplicates tolerated.
type DomainBus interface {
	// Publish broadcasts a payload on a domain-event channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe binds a handler to the given channels until the returned
	// subscription is closed.
	Subscribe(ctx context.Context, handler DomainHandler, channels ...string) (DomainSubscription, error)
}
