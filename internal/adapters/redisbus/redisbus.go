// Package redisbus carries domain events across processes over Redis Pub/Sub.
package redisbus

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/domain/ports"
)

// ErrNotReady is returned when Redis cannot be reached within the configured
// retry budget.
var ErrNotReady = errors.New("redisbus: redis is not ready")

// Config holds the Redis connection settings.
type Config struct {
	URL            string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// Bus implements ports.DomainBus over a Redis connection.
type Bus struct {
	client *redis.Client
}

// Connect establishes the Redis connection, retrying per the config.
func Connect(ctx context.Context, cfg Config) (*Bus, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrNotReady, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := 0; i < attempts; i++ {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return &Bus{client: client}, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

// Publish broadcasts a payload on a domain-event channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe binds the handler to the given channels. go-redis reconnects the
// pub/sub connection itself; events published during an outage are lost,
// which matches the broker's best-effort delivery model.
func (b *Bus) Subscribe(ctx context.Context, handler ports.DomainHandler, channels ...string) (ports.DomainSubscription, error) {
	pubsub := b.client.Subscribe(ctx, channels...)

	// Fail fast if the initial SUBSCRIBE doesn't go through.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	go func() {
		for msg := range pubsub.Channel() {
			handler(msg.Channel, []byte(msg.Payload))
		}
		log.Debug().Strs("channels", channels).Msg("domain event subscription closed")
	}()

	return pubsub, nil
}

// Close releases the Redis connection.
func (b *Bus) Close() error {
	return b.client.Close()
}
