// Package config loads daemon configuration from env and an optional
// .env file using Viper.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds daemon configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DataDir holds the sqlite database and staged uploads; default ~/.fivesense.
	DataDir string `mapstructure:"DATA_DIR"`
	// StaticDir serves the web UI when set; empty falls back to a search
	// of the usual locations.
	StaticDir string `mapstructure:"STATIC_DIR"`
	// FFmpegPath is the ffmpeg binary used to normalize evidence clips.
	FFmpegPath string `mapstructure:"FFMPEG_PATH"`
	// CameraID selects the capture device.
	CameraID int `mapstructure:"CAMERA_ID"`
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `mapstructure:"MOTION_THRESHOLD"`
	// FixedLatitude/FixedLongitude pin the daemon's position when the
	// host has no location source.
	FixedLatitude  string `mapstructure:"FIXED_LATITUDE"`
	FixedLongitude string `mapstructure:"FIXED_LONGITUDE"`
	// LocationCommand is an external helper printing "<lat> <lon>";
	// takes precedence over the fixed position when set.
	LocationCommand string `mapstructure:"LOCATION_COMMAND"`
	// DetectionEnabled starts the gesture pipeline armed.
	DetectionEnabled bool `mapstructure:"DETECTION_ENABLED"`
}

// Load reads .env (if present), then builds Config from the environment
// via Viper. Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATA_DIR", "")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("CAMERA_ID", 0)
	v.SetDefault("MOTION_THRESHOLD", 1.0)
	v.SetDefault("FIXED_LATITUDE", "")
	v.SetDefault("FIXED_LONGITUDE", "")
	v.SetDefault("LOCATION_COMMAND", "")
	v.SetDefault("DETECTION_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = filepath.Join(home, ".fivesense")
	}

	return &cfg, nil
}

// DBPath is the sqlite database location under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "fivesense.db")
}

// UploadsDir is where evidence clips are staged and served from.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}
