package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Rooms.DefaultCapacity)
	assert.Equal(t, 30*time.Second, cfg.WebRTC.NegotiationTimeout)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Signal.Address)
}

func TestLoadFromFile(t *testing.T) {
	data := `
signal:
  address: ":9999"
rooms:
  default_capacity: 8
webrtc:
  negotiation_timeout: 45s
rate_limiting:
  enabled: true
  http:
    requests_per_second: 10
    burst: 20
  websocket:
    messages_per_second: 30
    burst: 60
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Signal.Address)
	assert.Equal(t, 8, cfg.Rooms.DefaultCapacity)
	assert.Equal(t, 45*time.Second, cfg.WebRTC.NegotiationTimeout)
	assert.True(t, cfg.RateLimiting.Enabled)
	// unset sections keep defaults
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NINJALIVE_SIGNAL_ADDRESS", ":7070")
	t.Setenv("NINJALIVE_NEGOTIATION_TIMEOUT", "12s")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Signal.Address)
	assert.Equal(t, 12*time.Second, cfg.WebRTC.NegotiationTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rooms.DefaultCapacity = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Signal.PongTimeout = cfg.Signal.PingInterval
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.WebRTC.NegotiationTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRate = 2.0
	assert.Error(t, cfg.Validate())
}
