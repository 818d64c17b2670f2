package config

import "fmt"

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Auth.Enabled && cfg.Mongo.URI == "" {
		return fmt.Errorf("auth.enabled requires mongo.uri")
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	if cfg.Redis.RetryAttempts < 0 {
		return fmt.Errorf("redis.retry_attempts must not be negative")
	}

	return nil
}
