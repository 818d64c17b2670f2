// Package app orchestrates the broker, its adapters and the streaming
// server.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/adapters/followings"
	"github.com/frostlabs/pulse/internal/adapters/keystore"
	"github.com/frostlabs/pulse/internal/adapters/memorybus"
	"github.com/frostlabs/pulse/internal/adapters/mongodb"
	"github.com/frostlabs/pulse/internal/adapters/redisbus"
	"github.com/frostlabs/pulse/internal/broker"
	"github.com/frostlabs/pulse/internal/config"
	"github.com/frostlabs/pulse/internal/domain/ports"
	"github.com/frostlabs/pulse/internal/server/websocket"
)

// App is the main application struct wiring all components together.
type App struct {
	cfg     *config.Config
	version string

	broker   *broker.Broker
	wsServer *websocket.Server
	redisBus *redisbus.Bus

	mu      sync.Mutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) *App {
	return &App{cfg: cfg, version: version}
}

// Start wires everything up and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.mu.Unlock()

	domainBus, err := a.connectDomainBus(ctx)
	if err != nil {
		return err
	}

	resolver, auth, err := a.connectStore(ctx)
	if err != nil {
		return err
	}

	a.broker = broker.New(domainBus, resolver)
	if err := a.broker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start broker: %w", err)
	}

	a.wsServer = websocket.NewServer(a.cfg.Server.Host, a.cfg.Server.Port, a.broker, auth)
	if err := a.wsServer.Start(); err != nil {
		return fmt.Errorf("failed to start streaming server: %w", err)
	}

	log.Info().
		Str("version", a.version).
		Str("host", a.cfg.Server.Host).
		Int("port", a.cfg.Server.Port).
		Msg("pulse started")

	<-ctx.Done()
	return a.stop()
}

// connectDomainBus selects the cross-process medium: Redis when configured,
// otherwise a single-node in-memory bus.
func (a *App) connectDomainBus(ctx context.Context) (ports.DomainBus, error) {
	if a.cfg.Redis.URL == "" {
		log.Warn().Msg("no redis url configured, running standalone (events stay in-process)")
		return memorybus.New(), nil
	}

	bus, err := redisbus.Connect(ctx, redisbus.Config{
		URL:            a.cfg.Redis.URL,
		ConnectTimeout: time.Duration(a.cfg.Redis.ConnectTimeoutMS) * time.Millisecond,
		RetryAttempts:  a.cfg.Redis.RetryAttempts,
		RetryInterval:  time.Duration(a.cfg.Redis.RetryIntervalMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	a.redisBus = bus

	log.Info().Msg("connected to redis")
	return bus, nil
}

// connectStore wires the social graph resolver and the authenticator.
func (a *App) connectStore(ctx context.Context) (ports.FollowingResolver, ports.Authenticator, error) {
	if a.cfg.Mongo.URI == "" {
		log.Warn().Msg("no mongo uri configured, home timelines carry own postings only")
		return followings.EmptyResolver{}, keystore.TrustedAuthenticator{}, nil
	}

	db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:           a.cfg.Mongo.URI,
		Database:      a.cfg.Mongo.Database,
		RetryAttempts: 3,
		RetryInterval: time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	log.Info().Str("database", a.cfg.Mongo.Database).Msg("connected to mongo")

	var auth ports.Authenticator = keystore.TrustedAuthenticator{}
	if a.cfg.Auth.Enabled {
		auth = keystore.NewMongoAuthenticator(db)
	}

	return followings.NewMongoResolver(db), auth, nil
}

func (a *App) stop() error {
	log.Info().Msg("pulse stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.wsServer != nil {
		if err := a.wsServer.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("streaming server shutdown error")
		}
	}
	if a.broker != nil {
		a.broker.Stop()
	}
	if a.redisBus != nil {
		_ = a.redisBus.Close()
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	log.Info().Msg("pulse stopped")
	return nil
}
