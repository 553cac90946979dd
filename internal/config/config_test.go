package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "profile-enrich.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 10, cfg.Store.MaxConns)
	assert.Equal(t, 2, cfg.Store.MinConns)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.VisionModel)
	assert.Equal(t, 60, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, 2048, cfg.Anthropic.MaxOutputTokens)
	assert.Equal(t, 15, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, 500, cfg.Scrape.SettleMillis)
	assert.True(t, cfg.Scrape.Headless)
	// Diagnostic artifact capture is opt-in.
	assert.Empty(t, cfg.Scrape.ArtifactDir)
	assert.Equal(t, 25, cfg.Batch.Limit)
	assert.Equal(t, 6, cfg.Batch.ItemsPerMinute)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/enrich
  max_conns: 20
  min_conns: 4
scrape:
  timeout_secs: 30
  session_state_path: /tmp/session.json
batch:
  items_per_minute: 12
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/enrich", cfg.Store.DatabaseURL)
	assert.Equal(t, 20, cfg.Store.MaxConns)
	assert.Equal(t, 4, cfg.Store.MinConns)
	assert.Equal(t, 30, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, "/tmp/session.json", cfg.Scrape.SessionStatePath)
	assert.Equal(t, 12, cfg.Batch.ItemsPerMinute)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// File values do not clobber untouched defaults.
	assert.Equal(t, 2048, cfg.Anthropic.MaxOutputTokens)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)
	t.Setenv("ENRICH_ANTHROPIC_KEY", "sk-test")
	t.Setenv("ENRICH_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
