package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
sink:
  type: "null"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1500, cfg.Playback.CooldownMs)
	assert.Equal(t, 1500*time.Millisecond, cfg.Playback.Cooldown())
	assert.False(t, cfg.Playback.Loop)
	assert.Equal(t, 120, cfg.Fetch.TimeoutSec)
	assert.Equal(t, "null", cfg.Sink.Type)
	assert.NotEmpty(t, cfg.Messages.DefaultError)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  hooks:
    on_started: ["echo started"]
playback:
  cooldown_ms: 250
  loop: true
fetch:
  cache_dir: /tmp/cueloop
  timeout_sec: 30
  max_bytes: 1048576
  rate_per_min: 10
sink:
  type: exec
  settings:
    command: ffmpeg
    target: rtmp://example.com/live/key
filters:
  queue_limit_filter:
    enabled: true
    settings:
      max_length: 25
messages:
  queue_limit: "full up"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"echo started"}, cfg.Server.Hooks.OnStarted)
	assert.True(t, cfg.Playback.Loop)
	assert.Equal(t, 250*time.Millisecond, cfg.Playback.Cooldown())
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, "exec", cfg.Sink.Type)
	assert.Equal(t, "rtmp://example.com/live/key", cfg.Sink.Settings["target"])
	assert.True(t, cfg.IsFilterEnabled("queue_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("scheme_filter"))
	assert.Equal(t, "full up", cfg.GetMessage("queue_limit"))
	assert.Equal(t, cfg.Messages.DefaultError, cfg.GetMessage("nonsense"))
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeConfig(t, `
playback:
  cooldown_ms: -5
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesSinkTarget(t *testing.T) {
	t.Setenv("SINK_TARGET", "rtmp://example.com/live/secret")

	path := writeConfig(t, `
sink:
  type: exec
  settings:
    target: rtmp://example.com/live/from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rtmp://example.com/live/secret", cfg.Sink.Settings["target"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
