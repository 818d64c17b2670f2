package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/frostlabs/pulse/internal/app"
	"github.com/frostlabs/pulse/internal/config"
)

var (
	port     int
	redisURL string
	mongoURI string
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pulse streaming server",
	Long: `Start the pulse server and begin accepting streaming connections.

Without a Redis URL the server runs standalone and only relays events
published in-process, which is useful for local development.

Example:
  pulse start
  pulse start --port 8772
  pulse start --redis redis://localhost:6379/0 --mongo mongodb://localhost:27017`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&port, "port", 0, "server port for the streaming endpoint (default: 8772)")
	startCmd.Flags().StringVar(&redisURL, "redis", "", "redis url for cross-process events")
	startCmd.Flags().StringVar(&mongoURI, "mongo", "", "mongodb uri for the social graph and key store")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if port != 0 {
		cfg.Server.Port = port
	}
	if redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if mongoURI != "" {
		cfg.Mongo.URI = mongoURI
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Int("port", cfg.Server.Port).
		Bool("auth", cfg.Auth.Enabled).
		Msg("starting pulse")

	application := app.New(cfg, version)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	return nil
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
