// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Player   PlayerConfig   `yaml:"player"`
	Mopidy   MopidyConfig   `yaml:"mopidy"`
	Library  LibraryConfig  `yaml:"library"`
	Presence PresenceConfig `yaml:"presence"`
	Reader   ReaderConfig   `yaml:"reader"`
	Control  ControlConfig  `yaml:"control"`
	Hooks    HooksConfig    `yaml:"hooks"`
	Log      LogConfig      `yaml:"log"`
}

// PlayerConfig represents player configuration.
type PlayerConfig struct {
	Name string `yaml:"name" default:"Slide Player"`
}

// MopidyConfig represents the remote playback service connection.
type MopidyConfig struct {
	URL       string `yaml:"url" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
}

// LibraryConfig represents the playlist document source.
type LibraryConfig struct {
	URL          string `yaml:"url" validate:"required,url"`
	Token        string `yaml:"token"`
	RetryDelayMs int    `yaml:"retry_delay_ms" default:"2000" validate:"gte=100,lte=600000"`
	TimeoutMs    int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=60000"`
}

// PresenceConfig represents tag polling and removal debounce.
type PresenceConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms" default:"1000" validate:"gte=50,lte=10000"`
	GraceMs        int `yaml:"grace_ms" default:"1100" validate:"gte=100,lte=30000"`
}

// ReaderConfig represents the tag reader.
type ReaderConfig struct {
	Type    string `yaml:"type" default:"virtual" validate:"oneof=exec virtual"`
	Command string `yaml:"command" validate:"required_if=Type exec"`
}

// ControlConfig represents the control API.
type ControlConfig struct {
	Addr  string `yaml:"addr" default:":6681"`
	Token string `yaml:"token"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted        []string `yaml:"on_started"`
	OnStopped        []string `yaml:"on_stopped"`
	OnSessionStarted []string `yaml:"on_session_started"`
	OnSessionEnded   []string `yaml:"on_session_ended"`
}

// LogConfig represents log file rotation.
type LogConfig struct {
	MaxSizeMB  int `yaml:"max_size_mb" default:"10" validate:"gte=1"`
	MaxBackups int `yaml:"max_backups" default:"3" validate:"gte=0"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for endpoints and secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MOPIDY_URL"); v != "" {
		c.Mopidy.URL = v
	}
	if v := os.Getenv("LIBRARY_URL"); v != "" {
		c.Library.URL = v
	}
	if v := os.Getenv("LIBRARY_TOKEN"); v != "" {
		c.Library.Token = v
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateTiming(); err != nil {
		return err
	}

	return nil
}

// validateTiming checks that a tag read on every poll is never taken for removed.
func (c *Config) validateTiming() error {
	if c.Presence.GraceMs <= c.Presence.PollIntervalMs {
		return errors.Newf("presence grace_ms (%d) must exceed poll_interval_ms (%d)",
			c.Presence.GraceMs, c.Presence.PollIntervalMs)
	}
	return nil
}

// Timeout returns the per-call timeout.
func (m MopidyConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// Timeout returns the fetch timeout.
func (l LibraryConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutMs) * time.Millisecond
}

// RetryDelay returns the delay between failed loads.
func (l LibraryConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMs) * time.Millisecond
}

// PollInterval returns the reader poll period.
func (p PresenceConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// Grace returns the removal debounce window.
func (p PresenceConfig) Grace() time.Duration {
	return time.Duration(p.GraceMs) * time.Millisecond
}
