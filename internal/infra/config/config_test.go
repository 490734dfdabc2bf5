package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Player:   PlayerConfig{Name: "Slide Player"},
		Mopidy:   MopidyConfig{URL: "http://mopidy.local:6680", TimeoutMs: 5000},
		Library:  LibraryConfig{URL: "https://api.airtable.com/v0/app/Albums", RetryDelayMs: 2000, TimeoutMs: 10000},
		Presence: PresenceConfig{PollIntervalMs: 1000, GraceMs: 1100},
		Reader:   ReaderConfig{Type: "virtual"},
		Control:  ControlConfig{Addr: ":6681"},
		Log:      LogConfig{MaxSizeMB: 10, MaxBackups: 3},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing mopidy url",
			modify:  func(c *Config) { c.Mopidy.URL = "" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "malformed library url",
			modify:  func(c *Config) { c.Library.URL = "not a url" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "exec reader without command",
			modify:  func(c *Config) { c.Reader.Type = "exec" },
			wantErr: true,
			errMsg:  "Command",
		},
		{
			name: "exec reader with command",
			modify: func(c *Config) {
				c.Reader.Type = "exec"
				c.Reader.Command = "nfc-poll-id"
			},
			wantErr: false,
		},
		{
			name:    "unknown reader type",
			modify:  func(c *Config) { c.Reader.Type = "serial" },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "grace shorter than poll interval",
			modify:  func(c *Config) { c.Presence.GraceMs = 900 },
			wantErr: true,
			errMsg:  "grace_ms",
		},
		{
			name:    "grace equal to poll interval",
			modify:  func(c *Config) { c.Presence.GraceMs = 1000 },
			wantErr: true,
			errMsg:  "grace_ms",
		},
		{
			name:    "timeout out of range",
			modify:  func(c *Config) { c.Mopidy.TimeoutMs = 10 },
			wantErr: true,
			errMsg:  "TimeoutMs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slidebox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
mopidy:
  url: http://mopidy.local:6680
library:
  url: https://api.airtable.com/v0/app/Albums
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Slide Player", cfg.Player.Name)
	assert.Equal(t, 5*time.Second, cfg.Mopidy.Timeout())
	assert.Equal(t, 2*time.Second, cfg.Library.RetryDelay())
	assert.Equal(t, 10*time.Second, cfg.Library.Timeout())
	assert.Equal(t, time.Second, cfg.Presence.PollInterval())
	assert.Equal(t, 1100*time.Millisecond, cfg.Presence.Grace())
	assert.Equal(t, "virtual", cfg.Reader.Type)
	assert.Equal(t, ":6681", cfg.Control.Addr)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
player:
  name: Kitchen
mopidy:
  url: http://10.0.0.5:6680
  timeout_ms: 2000
library:
  url: https://api.airtable.com/v0/app/Albums
  token: file-token
presence:
  poll_interval_ms: 500
  grace_ms: 800
reader:
  type: exec
  command: nfc-poll-id
hooks:
  on_started:
    - echo started
  on_session_started:
    - echo "$SLIDEBOX_TAG_ID"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", cfg.Player.Name)
	assert.Equal(t, 2*time.Second, cfg.Mopidy.Timeout())
	assert.Equal(t, "file-token", cfg.Library.Token)
	assert.Equal(t, 500*time.Millisecond, cfg.Presence.PollInterval())
	assert.Equal(t, "exec", cfg.Reader.Type)
	assert.Equal(t, "nfc-poll-id", cfg.Reader.Command)
	assert.Equal(t, []string{"echo started"}, cfg.Hooks.OnStarted)
	assert.Equal(t, []string{`echo "$SLIDEBOX_TAG_ID"`}, cfg.Hooks.OnSessionStarted)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mopidy:
  url: http://mopidy.local:6680
library:
  url: https://api.airtable.com/v0/app/Albums
  token: file-token
`)
	t.Setenv("MOPIDY_URL", "http://override:6680")
	t.Setenv("LIBRARY_URL", "https://example.com/albums.json")
	t.Setenv("LIBRARY_TOKEN", "env-token")
	t.Setenv("CONTROL_TOKEN", "control-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override:6680", cfg.Mopidy.URL)
	assert.Equal(t, "https://example.com/albums.json", cfg.Library.URL)
	assert.Equal(t, "env-token", cfg.Library.Token)
	assert.Equal(t, "control-secret", cfg.Control.Token)
}

func TestLoad_EnvSatisfiesRequired(t *testing.T) {
	path := writeConfig(t, "player:\n  name: Den\n")
	t.Setenv("MOPIDY_URL", "http://mopidy.local:6680")
	t.Setenv("LIBRARY_URL", "https://example.com/albums.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Den", cfg.Player.Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "mopidy: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "mopidy:\n  url: http://m:6680\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}
