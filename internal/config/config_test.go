package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Takes.DefaultDurationMinutes)
	assert.Equal(t, 120, cfg.Takes.MaxPauseDuration)
	assert.Equal(t, 15, cfg.Takes.PauseExpirationWarning)
	assert.Equal(t, 5, cfg.Takes.LowTimeWarning)
	assert.Equal(t, time.Minute, cfg.Takes.SweepInterval)
	assert.Equal(t, 24, cfg.Takes.UploadWindowHours)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
slack:
  bot_token: xoxb-test
  listen_channel: C0TEST
takes:
  max_pause_duration: 90
  pause_expiration_warning: 10
  sweep_interval: 30s
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, "C0TEST", cfg.Slack.ListenChannel)
	assert.Equal(t, 90, cfg.Takes.MaxPauseDuration)
	assert.Equal(t, 10, cfg.Takes.PauseExpirationWarning)
	assert.Equal(t, 30*time.Second, cfg.Takes.SweepInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched keys keep their defaults
	assert.Equal(t, 5, cfg.Takes.LowTimeWarning)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"warning exceeds max pause", "takes:\n  max_pause_duration: 10\n  pause_expiration_warning: 15\n"},
		{"zero duration", "takes:\n  default_duration_minutes: 0\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"zero sweep interval", "takes:\n  sweep_interval: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Takes.MaxPauseDuration)
}
