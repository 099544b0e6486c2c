package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetSingleton() {
	instance = nil
	loadErr = nil
	once = sync.Once{}
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk AppConfig
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Equal(t, 25, onDisk.GridSize)
	require.Equal(t, 100, onDisk.TickMillis)
}

func TestLoadConfigReadsFile(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tile_size": 16, "surface": "terminal", "on_game_over": "restart"}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.TileSize)
	require.Equal(t, SurfaceTerminal, cfg.Surface)
	require.Equal(t, GameOverRestart, cfg.OnGameOver)
	// untouched keys keep their defaults
	require.Equal(t, 25, cfg.GridSize)
	require.Equal(t, "38870", GetConfigValue("port"))
	require.Equal(t, 16, GetConfigValue("tile_size"))
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"surface": "hologram"}`), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "hologram")
}

func TestLoadConfigBrokenJSON(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c.TickMillis = 0
	require.Error(t, c.Validate())

	c = Default()
	c.GridSize = 3
	require.Error(t, c.Validate())

	c = Default()
	c.OnGameOver = "shrug"
	require.Error(t, c.Validate())
}
