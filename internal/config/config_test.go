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
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "secret-token")

	path := writeConfig(t, `
telegram:
  bot_token: ${TEST_BOT_TOKEN}
database:
  path: `+filepath.Join(t.TempDir(), "data", "test.db")+`
session:
  ttl_minutes: 30
  sweep_interval_minutes: 5
search:
  limit: 7
cache:
  ttl_seconds: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Telegram.BotToken, "env placeholder expanded")
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 5*time.Minute, cfg.SessionSweepInterval())
	assert.Equal(t, 7, cfg.SearchLimit())
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
}

func TestDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 15*time.Minute, cfg.SessionSweepInterval())
	assert.Equal(t, 15, cfg.SearchLimit())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL(), "cache disabled unless configured")
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
