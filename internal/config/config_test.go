package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8772 {
		t.Errorf("Server.Port = %d, want 8772", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled should default to false")
	}
	if cfg.Mongo.Database != "pulse" {
		t.Errorf("Mongo.Database = %q, want pulse", cfg.Mongo.Database)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9000
redis:
  url: redis://localhost:6379/0
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "0.0.0.0", Port: 8772},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	if err := Validate(base()); err != nil {
		t.Errorf("Validate(valid) error = %v", err)
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := Validate(cfg); err == nil {
		t.Error("Validate accepted port 0")
	}

	cfg = base()
	cfg.Auth.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Error("Validate accepted auth without mongo uri")
	}

	cfg = base()
	cfg.Auth.Enabled = true
	cfg.Mongo.URI = "mongodb://localhost:27017"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(auth+mongo) error = %v", err)
	}

	cfg = base()
	cfg.Logging.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Error("Validate accepted unknown logging format")
	}
}
