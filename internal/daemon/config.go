// Package daemon manages the Keybeat daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Daemon     DaemonConfig     `toml:"daemon"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Engagement EngagementConfig `toml:"engagement"`
	Sync       SyncConfig       `toml:"sync"`
	Relay      RelayConfig      `toml:"relay"`
	Logging    LoggingConfig    `toml:"logging"`
}

// DaemonConfig controls the local API server.
type DaemonConfig struct {
	Listen     string `toml:"listen"`
	DeviceName string `toml:"device_name"` // empty falls back to the hostname
}

// TrackerConfig bounds the ingest pipeline. Zero values use the built-in
// defaults.
type TrackerConfig struct {
	MaxEventsPerSecond int    `toml:"max_events_per_second"`
	OverloadThreshold  int    `toml:"overload_threshold"`
	BatchSize          int    `toml:"batch_size"`
	FlushInterval      string `toml:"flush_interval"`
	NotifyInterval     string `toml:"notify_interval"`
}

// EngagementConfig controls the rule engine cadence.
type EngagementConfig struct {
	SweepInterval          string `toml:"sweep_interval"`
	EveryEvents            int    `toml:"every_events"`
	MaxNotificationsPerDay int    `toml:"max_notifications_per_day"`
}

// SyncConfig points the daemon at a replica relay. Sync is enabled iff
// RelayURL is set; these settings reload live.
type SyncConfig struct {
	RelayURL string `toml:"relay_url"`
	Token    string `toml:"token"`
	UserID   string `toml:"user_id"`
	Interval string `toml:"interval"`
}

// RelayConfig controls relay mode (keybeat relay).
type RelayConfig struct {
	Listen string `toml:"listen"`
	Token  string `toml:"token"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Daemon: DaemonConfig{
			Listen: "127.0.0.1:7399",
		},
		Engagement: EngagementConfig{
			SweepInterval:          "30s",
			EveryEvents:            50,
			MaxNotificationsPerDay: 10,
		},
		Sync: SyncConfig{
			Interval: "5m",
		},
		Relay: RelayConfig{
			Listen: "127.0.0.1:7400",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigPath returns the path of the config file.
func ConfigPath() string {
	return filepath.Join(keybeatHome(), "config.toml")
}

// LoadConfig reads config from $KEYBEAT_HOME/config.toml, falling back to
// defaults when the file does not exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $KEYBEAT_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// keybeatHome returns the Keybeat data directory.
func keybeatHome() string {
	if env := os.Getenv("KEYBEAT_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".keybeat")
}

// Home is exported for use by other packages.
func Home() string {
	return keybeatHome()
}
