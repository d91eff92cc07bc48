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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `oracle:
  base_url: https://api.example.com
  model: test-model
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8080", cfg.App.ListenAddr)
	assert.Equal(t, 15*time.Second, cfg.Engine.CycleInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 90*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "https://fapi.binance.com", cfg.Broker.RESTBaseURL)
}

func TestLoadParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`engine:
  cycle_interval: 30s
  tick_interval: 250ms
`))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Engine.CycleInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.TickInterval)
}

func TestLoadRejectsMissingOracle(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  log_level: debug\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle.base_url")
}

func TestLoadRejectsBadInterval(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"engine:\n  cycle_interval: -5s\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
