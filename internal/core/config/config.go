// Package config handles configuration loading and validation for postsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/postsync/internal/core/post"
)

// Backend selects the KV implementation behind the record store.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendJSON   Backend = "json"
)

// IsValid checks if the backend is supported.
func (b Backend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendJSON:
		return true
	default:
		return false
	}
}

// Config holds the application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Relay    RelayConfig    `yaml:"relay"`
	Defaults PostDefaults   `yaml:"defaults"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	Backend Backend `yaml:"backend"`
	// SimulateLatency delays store calls like a remote API would.
	SimulateLatency bool `yaml:"simulate_latency"`
	// Seed writes sample posts when the store is empty.
	Seed bool `yaml:"seed"`
	// NotificationHistory caps the notifications kept by the sqlite backend.
	NotificationHistory int `yaml:"notification_history"`
}

// DatabaseConfig holds SQLite connection pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// RelayConfig holds cross-tab relay settings.
type RelayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
	// Retention is how long relayed message files are kept on disk.
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// PostDefaults pre-fills the new post form.
type PostDefaults struct {
	Author string      `yaml:"author"`
	Status post.Status `yaml:"status"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:             BackendSQLite,
			Seed:                true,
			NotificationHistory: 500,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
		Relay: RelayConfig{
			Enabled:       true,
			Channel:       "post_updates_channel",
			Retention:     10 * time.Minute,
			SweepInterval: time.Minute,
		},
		Defaults: PostDefaults{
			Status: post.StatusDraft,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Store.NotificationHistory == 0 {
		c.Store.NotificationHistory = defaults.Store.NotificationHistory
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Relay.Channel == "" {
		c.Relay.Channel = defaults.Relay.Channel
	}
	if c.Relay.Retention == 0 {
		c.Relay.Retention = defaults.Relay.Retention
	}
	if c.Relay.SweepInterval == 0 {
		c.Relay.SweepInterval = defaults.Relay.SweepInterval
	}
	if c.Defaults.Status == "" {
		c.Defaults.Status = defaults.Defaults.Status
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if !c.Store.Backend.IsValid() {
		return fmt.Errorf("store.backend %q is invalid (want %q or %q)", c.Store.Backend, BackendSQLite, BackendJSON)
	}

	if c.Store.NotificationHistory < 1 {
		return fmt.Errorf("store.notification_history must be at least 1")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if c.Relay.Retention < 0 || c.Relay.SweepInterval < 0 {
		return fmt.Errorf("relay durations cannot be negative")
	}

	if !c.Defaults.Status.IsValid() {
		return fmt.Errorf("defaults.status %q is invalid", c.Defaults.Status)
	}

	return nil
}

// DatabaseDir returns the directory holding the SQLite database.
func (c *Config) DatabaseDir() string {
	return c.DataDir
}

// PostsFile returns the path to the posts JSON file used by the json backend.
func (c *Config) PostsFile() string {
	return filepath.Join(c.DataDir, "posts.json")
}

// ChannelsDir returns the directory holding relay channel message files.
func (c *Config) ChannelsDir() string {
	return filepath.Join(c.DataDir, "channels")
}
