// Package mongodb connects the broker to its document store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotReady is returned when MongoDB cannot be reached.
var ErrNotReady = errors.New("mongodb: server is not ready")

// Config holds the connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// Connect establishes a client and returns the configured database,
// retrying per the config.
func Connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	attempts := max(cfg.RetryAttempts, 1)
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	for i := 0; i < attempts; i++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URI).
				SetConnectTimeout(timeout),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client.Database(cfg.Database), nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}
