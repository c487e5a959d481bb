// config/config.go

// Package config loads server configuration from an optional YAML file,
// with defaults suitable for local development.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	Database DatabaseConfig `yaml:"database"`
	Service  ServiceConfig  `yaml:"service"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServiceConfig holds the websocket service tunables, in seconds where a
// duration is meant.
type ServiceConfig struct {
	MaxMessageSize   int64 `yaml:"max_message_size"`
	WriteTimeout     int   `yaml:"write_timeout"`
	ReadTimeout      int   `yaml:"read_timeout"`
	PingInterval     int   `yaml:"ping_interval"`
	MaxClients       int   `yaml:"max_clients"`
	AutoSaveInterval int   `yaml:"auto_save_interval"`
	PresenceTimeout  int   `yaml:"presence_timeout"`
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Port: "8080",
		Env:  "dev",
		Database: DatabaseConfig{
			Enabled:  true,
			Host:     envOrDefault("DB_HOST", "localhost"),
			Port:     envOrDefault("DB_PORT", "5432"),
			User:     envOrDefault("DB_USER", "postgres"),
			Password: envOrDefault("DB_PASSWORD", "postgres"),
			Name:     envOrDefault("DB_NAME", "collab_sync"),
		},
		Service: ServiceConfig{
			MaxMessageSize:   512 * 1024,
			WriteTimeout:     10,
			ReadTimeout:      60,
			PingInterval:     30,
			MaxClients:       1000,
			AutoSaveInterval: 30,
			PresenceTimeout:  120,
		},
	}
}

// Load reads configuration from the given YAML file on top of the
// defaults. An empty path skips the file.
func Load(path string, env string) (*Config, error) {
	cfg := Default()
	if env != "" {
		cfg.Env = env
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
