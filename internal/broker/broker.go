// Package broker owns the event-streaming core: the local exchange, the
// stream registry and the domain event bridge. One Broker is constructed at
// server start, passed by reference to connection handlers, and never torn
// down during normal operation.
package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/bridge"
	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/domain/ports"
	"github.com/frostlabs/pulse/internal/registry"
	"github.com/frostlabs/pulse/internal/streamid"
)

// Broker is the process-wide streaming backbone.
type Broker struct {
	exchange   *bus.Exchange
	registry   *registry.Registry
	bridge     *bridge.Bridge
	followings ports.FollowingResolver
}

// New wires a broker onto the given domain-event medium and social graph.
func New(domainBus ports.DomainBus, followings ports.FollowingResolver) *Broker {
	exchange := bus.NewExchange()
	return &Broker{
		exchange:   exchange,
		registry:   registry.New(exchange),
		bridge:     bridge.New(domainBus, exchange),
		followings: followings,
	}
}

// Start binds the domain event bridge and warms up the persistent general
// timeline stream.
func (b *Broker) Start(ctx context.Context) error {
	if err := b.bridge.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	// The general stream outlives any listener; create it up front so the
	// general topic is subscribed for the whole process lifetime.
	l, err := b.registry.Subscribe(ctx, streamid.GeneralTimelineStream,
		func(ctx context.Context, gb *bus.Bus) error {
			gb.Subscribe(streamid.GeneralTimelineTopic)
			return nil
		},
		func(streamid.ID, any) {},
	)
	if err != nil {
		return fmt.Errorf("create general timeline stream: %w", err)
	}
	b.registry.Unsubscribe(streamid.GeneralTimelineStream, l)

	log.Info().Msg("broker started")
	return nil
}

// Stop closes the domain-event subscription. Streams are left in place; the
// broker has no normal-operation teardown beyond process exit.
func (b *Broker) Stop() {
	b.bridge.Stop()
}

// Registry exposes the stream registry to connection sessions.
func (b *Broker) Registry() *registry.Registry {
	return b.registry
}

// Exchange exposes the local exchange (used by tests and ops tooling).
func (b *Broker) Exchange() *bus.Exchange {
	return b.exchange
}
