// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddress    string  `mapstructure:"HTTP_ADDRESS"`
	StorageBackend string  `mapstructure:"STORAGE_BACKEND"`
	SQLitePath     string  `mapstructure:"SQLITE_PATH"`
	RedisAddr      string  `mapstructure:"REDIS_ADDR"`
	RedisPassword  string  `mapstructure:"REDIS_PASSWORD"`
	RedisPrefix    string  `mapstructure:"REDIS_PREFIX"`
	MapboxToken    string  `mapstructure:"MAPBOX_TOKEN"`
	MapTileURL     string  `mapstructure:"MAP_TILE_URL"`
	MapZoom        int     `mapstructure:"MAP_ZOOM"`
	HomeLat        float64 `mapstructure:"HOME_LAT"`
	HomeLng        float64 `mapstructure:"HOME_LNG"`
	HomeSet        bool    `mapstructure:"-"`
	UIDir          string  `mapstructure:"UI_DIR"`
	LogLevel       string  `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"HTTP_ADDRESS",
	"STORAGE_BACKEND",
	"SQLITE_PATH",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_PREFIX",
	"MAPBOX_TOKEN",
	"MAP_TILE_URL",
	"MAP_ZOOM",
	"HOME_LAT",
	"HOME_LNG",
	"UI_DIR",
	"LOG_LEVEL",
}

// Load reads .env (if present) and the environment, applying defaults for local use.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	v.SetDefault("HTTP_ADDRESS", ":8222")
	v.SetDefault("STORAGE_BACKEND", "sqlite")
	v.SetDefault("SQLITE_PATH", "mapty.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "mapty:")
	v.SetDefault("MAP_TILE_URL", "https://{s}.tile.openstreetmap.fr/hot/{z}/{x}/{y}.png")
	v.SetDefault("MAP_ZOOM", 15)
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.HomeSet = v.IsSet("HOME_LAT") && v.IsSet("HOME_LNG")

	return cfg, nil
}

// loadDotEnv reads the given files (.env by default). A missing file is not an error.
func loadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading env file: %w", err)
}

func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
