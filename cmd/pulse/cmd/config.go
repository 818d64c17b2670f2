package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frostlabs/pulse/internal/config"
)

// configCmd displays configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display configuration",
	Long: `Display pulse configuration.

Without subcommands, shows the current effective configuration.

Examples:
  pulse config                    # Show current config
  pulse config path               # Show config file search paths
  pulse config get <key>          # Get a config value`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configPathCmd shows config file locations.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file search paths",
	Run:   runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  pulse config get server.port
  pulse config get redis.url
  pulse config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
}

func runConfigPath(cmd *cobra.Command, args []string) {
	home, _ := os.UserHomeDir()

	locations := []string{
		"./config.yaml",
		filepath.Join(home, ".pulse", "config.yaml"),
		"/etc/pulse/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func getConfigValue(cfg *config.Config, key string) (any, error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid key: %s", key)
	}

	switch parts[0] {
	case "server":
		switch parts[1] {
		case "host":
			return cfg.Server.Host, nil
		case "port":
			return cfg.Server.Port, nil
		}
	case "redis":
		switch parts[1] {
		case "url":
			return cfg.Redis.URL, nil
		case "connect_timeout_ms":
			return cfg.Redis.ConnectTimeoutMS, nil
		case "retry_attempts":
			return cfg.Redis.RetryAttempts, nil
		case "retry_interval_ms":
			return cfg.Redis.RetryIntervalMS, nil
		}
	case "mongo":
		switch parts[1] {
		case "uri":
			return cfg.Mongo.URI, nil
		case "database":
			return cfg.Mongo.Database, nil
		}
	case "auth":
		if parts[1] == "enabled" {
			return cfg.Auth.Enabled, nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		}
	}

	return nil, fmt.Errorf("unknown key: %s", key)
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Host:            %s\n", cfg.Server.Host)
	fmt.Printf("Port:            %d\n", cfg.Server.Port)
	fmt.Printf("Redis URL:       %s\n", orUnset(cfg.Redis.URL))
	fmt.Printf("Mongo URI:       %s\n", orUnset(cfg.Mongo.URI))
	fmt.Printf("Mongo Database:  %s\n", cfg.Mongo.Database)
	fmt.Printf("Auth Enabled:    %t\n", cfg.Auth.Enabled)
	fmt.Printf("Log Level:       %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:      %s\n", cfg.Logging.Format)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
