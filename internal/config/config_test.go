package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config."+env+".yaml"), []byte(body), 0o644))
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", env)
}

func TestLoadFile(t *testing.T) {
	writeConfig(t, "test", `
port: 9090
secret: s3cret
rooms:
  max_rooms: 5
  idle_timeout: 1m
bus:
  policy: kick
`)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.Rooms.MaxRooms)
	assert.Equal(t, time.Minute, cfg.Rooms.IdleTimeout)
	assert.Equal(t, 64, cfg.Rooms.InboxSize)
	assert.Equal(t, "kick", cfg.Bus.Policy)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfig(t, "test", "secret: s3cret\nrooms:\n  max_rooms: 5\n")
	t.Setenv("POKER_ROOMS_MAX_ROOMS", "7")
	t.Setenv("POKER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Rooms.MaxRooms)
	assert.Equal(t, 7070, cfg.Port)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "nowhere")
	t.Setenv("POKER_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1000, cfg.Rooms.MaxRooms)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.IdleTimeout)
	assert.Equal(t, "replace", cfg.Bus.Policy)
}

func TestSecretRequired(t *testing.T) {
	writeConfig(t, "test", "port: 1234\n")
	_, err := Load()
	assert.Error(t, err)
}
