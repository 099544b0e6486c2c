package config

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	TileSize       int    `json:"tile_size"`
	GridSize       int    `json:"grid_size"`
	TickMillis     int    `json:"tick_millis"`
	AssetDir       string `json:"asset_dir"`
	Port           string `json:"port"`
	Surface        string `json:"surface"`      // window, terminal, http
	OnGameOver     string `json:"on_game_over"` // exit, restart
	FoodAvoidSnake bool   `json:"food_avoid_snake"`
	Seed           int64  `json:"seed"` // 0 means seeded from the clock
	InputRPS       int    `json:"input_rps"`
	LogLevel       string `json:"log_level"`
	WatchAssets    bool   `json:"watch_assets"`
}

const (
	SurfaceWindow   = "window"
	SurfaceTerminal = "terminal"
	SurfaceHTTP     = "http"

	GameOverExit    = "exit"
	GameOverRestart = "restart"
)

var (
	instance *AppConfig
	once     sync.Once
	loadErr  error
)

// Default returns the built-in settings.
func Default() *AppConfig {
	return &AppConfig{
		TileSize:    32,
		GridSize:    25,
		TickMillis:  100,
		AssetDir:    "Images",
		Port:        "38870",
		Surface:     SurfaceWindow,
		OnGameOver:  GameOverExit,
		InputRPS:    20,
		LogLevel:    "info",
		WatchAssets: true,
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) (*AppConfig, error) {
	once.Do(func() {
		instance = Default()
		// Load the config file if it exists, otherwise create one
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			loadErr = saveConfig(filePath)
		} else {
			loadErr = loadConfig(filePath)
		}
		if loadErr == nil {
			loadErr = instance.Validate()
		}
	})
	return instance, loadErr
}

// loadConfig loads the settings from the file
func loadConfig(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "config: open %s", filePath)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(instance); err != nil {
		return errors.Wrapf(err, "config: decode %s", filePath)
	}
	return nil
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "config: create %s", filePath)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(instance); err != nil {
		return errors.Wrapf(err, "config: write %s", filePath)
	}
	return nil
}

// Validate checks the settings that would otherwise break the game loop.
func (c *AppConfig) Validate() error {
	switch {
	case c.TileSize <= 0:
		return errors.Errorf("config: tile_size must be positive, got %d", c.TileSize)
	case c.GridSize < 4:
		return errors.Errorf("config: grid_size must be at least 4, got %d", c.GridSize)
	case c.TickMillis <= 0:
		return errors.Errorf("config: tick_millis must be positive, got %d", c.TickMillis)
	case c.InputRPS <= 0:
		return errors.Errorf("config: input_rps must be positive, got %d", c.InputRPS)
	}
	switch c.Surface {
	case SurfaceWindow, SurfaceTerminal, SurfaceHTTP:
	default:
		return errors.Errorf("config: unknown surface %q", c.Surface)
	}
	switch c.OnGameOver {
	case GameOverExit, GameOverRestart:
	default:
		return errors.Errorf("config: unknown on_game_over %q", c.OnGameOver)
	}
	return nil
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	if instance == nil {
		return ""
	}
	switch key {
	case "tile_size":
		return instance.TileSize
	case "grid_size":
		return instance.GridSize
	case "tick_millis":
		return instance.TickMillis
	case "asset_dir":
		return instance.AssetDir
	case "port":
		return instance.Port
	case "surface":
		return instance.Surface
	case "on_game_over":
		return instance.OnGameOver
	case "log_level":
		return instance.LogLevel
	default:
		return ""
	}
}
