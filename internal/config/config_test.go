package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
mrcpd:
  node:
    hostname: "test-host"
  control:
    socket: "/tmp/test.sock"
  listen:
    v2: "0.0.0.0:1544"
  profiles:
    - name: "default"
      context_capacity: 5
      resources: ["speechrecog", "speechsynth"]
  metrics:
    enabled: true
    listen: "0.0.0.0:9090"
  log:
    level: "debug"
    format: "json"
`))
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Node.Hostname)
	assert.Equal(t, "test-host", cfg.Node.Instance)
	assert.Equal(t, "/tmp/test.sock", cfg.Control.Socket)
	assert.Equal(t, "0.0.0.0:1544", cfg.Listen.V2)
	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, "default", cfg.Profiles[0].Name)
	assert.Equal(t, []string{"speechrecog", "speechsynth"}, cfg.Profiles[0].Resources)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9090", cfg.Metrics.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
mrcpd:
  profiles:
    - name: "default"
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/run/mrcpd.sock", cfg.Control.Socket)
	assert.Equal(t, ":1544", cfg.Listen.V2)
	assert.Equal(t, 5, cfg.Profiles[0].ContextCapacity)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20*time.Millisecond, cfg.Media.TickIntervalDuration())
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
mrcpd:
  profiles:
    - name: "default"
  log:
    level: "verbose"
`))
	assert.Error(t, err)
}

func TestLoadRejectsNoListenAddress(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
mrcpd:
  listen:
    v2: ""
  profiles:
    - name: "default"
`))
	assert.Error(t, err)
}

func TestLoadRejectsNoProfiles(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
mrcpd:
  listen:
    v2: ":1544"
`))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateProfileNames(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
mrcpd:
  profiles:
    - name: "default"
    - name: "default"
`))
	assert.Error(t, err)
}

func TestLoadRejectsEventsWithoutBrokers(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
mrcpd:
  profiles:
    - name: "default"
  events:
    enabled: true
    topic: "sessions"
`))
	assert.Error(t, err)
}

func TestTracingInstanceInheritsNodeInstance(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
mrcpd:
  node:
    hostname: "host-a"
  profiles:
    - name: "default"
  tracing:
    enabled: true
    collector_addr: "oap:11800"
`))
	require.NoError(t, err)
	assert.Equal(t, "host-a", cfg.Tracing.ServiceInstance)
}
