package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yml"))
	assert.Equal(t, "perfwatch", cfg.System.Appid)
	assert.Equal(t, 1816, cfg.Web.Port)
	assert.Equal(t, 10000, cfg.Monitoring.SampleCapacity)
	assert.Equal(t, int64(60_000), cfg.Monitoring.EvalWindowMillis)
}

func TestLoadConfigFromFile(t *testing.T) {
	content := `
system:
  appid: perfwatch-test
  workdir: /tmp/perfwatch
web:
  host: 127.0.0.1
  port: 9000
monitoring:
  sample_capacity: 500
  critical_endpoints:
    - /courses
    - /users/:id
  baseline_store: bolt
  thresholds:
    response_time_warn_ms: 800
  channels:
    - type: chat
      name: ops
      enabled: true
      settings:
        webhook_url: https://chat.example.com/hooks/abc
`
	path := filepath.Join(t.TempDir(), "perfwatch.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := LoadConfig(path)
	assert.Equal(t, "perfwatch-test", cfg.System.Appid)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, 500, cfg.Monitoring.SampleCapacity)
	assert.Equal(t, []string{"/courses", "/users/:id"}, cfg.Monitoring.CriticalEndpoints)
	assert.Equal(t, "bolt", cfg.Monitoring.BaselineStore)
	assert.Equal(t, float64(800), cfg.Monitoring.Thresholds.ResponseTimeWarnMs)

	require.Len(t, cfg.Monitoring.Channels, 1)
	ch := cfg.Monitoring.Channels[0]
	assert.Equal(t, "chat", ch.Type)
	assert.True(t, ch.Enabled)
	assert.Equal(t, "https://chat.example.com/hooks/abc", ch.Settings["webhook_url"])

	// unset sections fall back to sane values
	assert.Equal(t, int64(60_000), cfg.Monitoring.EvalWindowMillis)
	assert.Equal(t, 90, cfg.Monitoring.ViolationKeepDays)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PERFWATCH_DB_HOST", "db.internal")
	t.Setenv("PERFWATCH_SYSTEM_WORKDIR", "/srv/perfwatch")

	cfg := LoadConfig("")
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "/srv/perfwatch", cfg.System.Workdir)
}
