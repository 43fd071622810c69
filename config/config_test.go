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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
auth:
  secret: "test-secret"
  admin: "acct_admin"
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, 5, cfg.Server.CacheTTLSeconds)
	assert.Equal(t, 24*60, cfg.Auth.TokenTTLMinutes)

	assert.Equal(t, int64(10), cfg.Engine.RatePerMinuteCents)
	assert.Equal(t, int64(200), cfg.Engine.MinDepositCents)
	assert.Equal(t, int64(300), cfg.Engine.CheckInTimeoutSeconds)

	assert.Equal(t, 5*time.Second, cfg.Sensor.Interval)
	assert.Equal(t, 20.0, cfg.Sensor.OccupiedBelowCM)
	assert.Equal(t, 27.0, cfg.Sensor.FreeAboveCM)
	assert.Equal(t, 3, cfg.Sensor.DebounceCount)

	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  port: 9090
`))
	assert.Error(t, err)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  rate_limit_per_sec: 50
auth:
  secret: "test-secret"
engine:
  rate_per_minute_cents: 25
  min_deposit_cents: 500
  checkin_timeout_seconds: 600
sensor:
  enabled: true
  url: "http://gateway.local/readings"
  interval_seconds: 2
  occupied_below_cm: 15
  free_above_cm: 30
  debounce_count: 5
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, int64(25), cfg.Engine.RatePerMinuteCents)
	assert.Equal(t, int64(500), cfg.Engine.MinDepositCents)
	assert.Equal(t, int64(600), cfg.Engine.CheckInTimeoutSeconds)
	assert.True(t, cfg.Sensor.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Sensor.Interval)
	assert.Equal(t, 15.0, cfg.Sensor.OccupiedBelowCM)
	assert.Equal(t, 30.0, cfg.Sensor.FreeAboveCM)
	assert.Equal(t, 5, cfg.Sensor.DebounceCount)
}

func TestLoadFloors(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
auth:
  secret: "test-secret"
engine:
  checkin_timeout_seconds: 10
sensor:
  occupied_below_cm: 25
  free_above_cm: 20
`))
	require.NoError(t, err)

	// A timeout below the engine floor falls back to the default window.
	assert.Equal(t, int64(300), cfg.Engine.CheckInTimeoutSeconds)

	// An inverted hysteresis band is widened above the occupied threshold.
	assert.Equal(t, 25.0, cfg.Sensor.OccupiedBelowCM)
	assert.Equal(t, 32.0, cfg.Sensor.FreeAboveCM)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
