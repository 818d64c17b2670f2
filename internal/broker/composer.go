package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/registry"
	"github.com/frostlabs/pulse/internal/streamid"
)

// HomeStreamFactory composes a user's home timeline: the new stream
// subscribes to the user's own posting topic plus one topic per followed
// user. The graph is resolved once, at stream creation time; it is not
// re-resolved when followings change later (the redis.following domain event
// is a registered no-op hook).
func (b *Broker) HomeStreamFactory(userID string) registry.Factory {
	return func(ctx context.Context, sb *bus.Bus) error {
		own, err := streamid.UserTimelineTopic(userID)
		if err != nil {
			return fmt.Errorf("own topic for %q: %w", userID, err)
		}
		sb.Subscribe(own)

		targets, err := b.followings.FindTargets(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve followings for %q: %w", userID, err)
		}

		for _, target := range targets {
			topic, err := streamid.UserTimelineTopic(target)
			if err != nil {
				log.Warn().Str("target", target).Msg("skipping invalid following target id")
				continue
			}
			sb.Subscribe(topic)
		}

		log.Debug().Str("user_id", userID).Int("followings", len(targets)).Msg("home timeline composed")
		return nil
	}
}
