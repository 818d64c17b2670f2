// Package bridge re-publishes cross-process domain events onto local topics.
//
// One bridge instance is created at broker startup and lives for the process
// lifetime. A posting domain event fans out to exactly two local topics: the
// author's personal topic and the general timeline topic.
package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/domain/events"
	"github.com/frostlabs/pulse/internal/domain/ports"
	"github.com/frostlabs/pulse/internal/streamid"
)

// Bridge binds the domain-event medium to the local exchange.
type Bridge struct {
	domainBus ports.DomainBus
	exchange  *bus.Exchange
	sub       ports.DomainSubscription
}

// New creates a bridge; call Start to bind it.
func New(domainBus ports.DomainBus, exchange *bus.Exchange) *Bridge {
	return &Bridge{
		domainBus: domainBus,
		exchange:  exchange,
	}
}

// Start subscribes to the domain-event channels. Registered once; the
// subscription is not created or destroyed per connection.
func (b *Bridge) Start(ctx context.Context) error {
	channels := []string{
		streamid.DomainPostingChat.String(),
		streamid.DomainPostingArticle.String(),
		streamid.DomainPostingReference.String(),
		streamid.DomainFollowing.String(),
	}

	sub, err := b.domainBus.Subscribe(ctx, b.handle, channels...)
	if err != nil {
		return fmt.Errorf("subscribe domain events: %w", err)
	}
	b.sub = sub

	log.Info().Strs("channels", channels).Msg("domain event bridge started")
	return nil
}

// Stop closes the domain-event subscription.
func (b *Bridge) Stop() {
	if b.sub != nil {
		_ = b.sub.Close()
		b.sub = nil
	}
}

func (b *Bridge) handle(channel string, payload []byte) {
	switch streamid.ID(channel) {
	case streamid.DomainPostingChat:
		b.handlePostingChat(payload)

	case streamid.DomainPostingArticle, streamid.DomainPostingReference:
		// Registered hook points; no local fan-out yet.

	case streamid.DomainFollowing:
		// Hook point for dynamic graph-subscription maintenance. Home
		// streams are composed once at creation and are not re-derived
		// when the follow graph changes.

	default:
		log.Warn().Str("channel", channel).Msg("unrecognized domain event")
	}
}

func (b *Bridge) handlePostingChat(payload []byte) {
	ev, err := events.DecodePostingEvent(payload)
	if err != nil {
		log.Error().Err(err).Msg("malformed posting domain event")
		return
	}

	authorTopic, err := streamid.UserTimelineTopic(ev.Posting.User.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ev.Posting.User.ID).Msg("invalid posting author id")
		return
	}

	b.exchange.Publish(authorTopic, ev.Posting)
	b.exchange.Publish(streamid.GeneralTimelineTopic, ev.Posting)

	log.Trace().Str("author", ev.Posting.User.ID).Str("posting_id", ev.Posting.ID).Msg("posting fanned out")
}
