package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bulk", cfg.Aggregate.Strategy)
	assert.Equal(t, 0, cfg.Aggregate.Workers)
	assert.Equal(t, 1, cfg.Aggregate.MaxRegionsPerPass)
	assert.False(t, cfg.Aggregate.BestEffort)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "nightlights.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
aggregate:
  strategy: bounded
  max_regions_per_pass: 16
store:
  driver: postgres
  database_url: postgres://localhost/lights
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bounded", cfg.Aggregate.Strategy)
	assert.Equal(t, 16, cfg.Aggregate.MaxRegionsPerPass)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/lights", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 0, cfg.Aggregate.Workers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
aggregate:
  strategy: bounded
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("NIGHTLIGHTS_AGGREGATE_STRATEGY", "bulk")
	t.Setenv("NIGHTLIGHTS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "bulk", cfg.Aggregate.Strategy)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("NIGHTLIGHTS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func validDefaults() *Config {
	return &Config{
		Aggregate: AggregateConfig{Strategy: "bulk", MaxRegionsPerPass: 1},
		Store:     StoreConfig{Driver: "sqlite", SQLitePath: "nightlights.db"},
		Server:    ServerConfig{Port: 8080},
	}
}

func TestValidateAggregate(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("aggregate"))

	cfg.Aggregate.Strategy = "streaming"
	err := cfg.Validate("aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate.strategy")

	cfg = validDefaults()
	cfg.Aggregate.MaxRegionsPerPass = 0
	err = cfg.Validate("aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_regions_per_pass")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg = validDefaults()
	cfg.Store.Driver = "postgres"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/lights"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestDump(t *testing.T) {
	cfg := validDefaults()
	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: bulk")
	assert.Contains(t, out, "driver: sqlite")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
