// Package config loads chalk configuration from defaults, a TOML file and
// CHALK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dori/chalk/internal/db"
)

// Default values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultWeekStart = "monday"
	configFileName   = "config.toml"
)

// Config holds application configuration
type Config struct {
	DataDir       string `toml:"data_dir"`
	ExportDir     string `toml:"export_dir"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	WeekStart     string `toml:"week_start"`
	Notifications bool   `toml:"notifications"`

	// NoLock skips the single-instance lock; set by read-only subcommands.
	NoLock bool `toml:"-"`
}

// Default returns the configuration used when no file or env is present
func Default() *Config {
	return &Config{
		DataDir:       db.DefaultDataDir(),
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		WeekStart:     DefaultWeekStart,
		Notifications: true,
	}
}

// DBPath returns the record store location inside the data dir
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "chalk.db")
}

// ExportPath returns the backup directory, defaulting to exports/ under the data dir
func (c *Config) ExportPath() string {
	if c.ExportDir != "" {
		return c.ExportDir
	}
	return filepath.Join(c.DataDir, "exports")
}

// LogPath returns the log file location inside the data dir
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "chalk.log")
}

// LockPath returns the single-instance lock file location
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "chalk.lock")
}

// FirstWeekday maps WeekStart to a time.Weekday
func (c *Config) FirstWeekday() time.Weekday {
	if strings.EqualFold(c.WeekStart, "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// Path returns the user config file path
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chalk", configFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(home, ".config", "chalk", configFileName)
}

// Load reads configuration from the default path
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile loads configuration from path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := finalize(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("CHALK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CHALK_EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v := os.Getenv("CHALK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHALK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("CHALK_WEEK_START"); v != "" {
		cfg.WeekStart = v
	}
	if v := os.Getenv("CHALK_NOTIFICATIONS"); v != "" {
		cfg.Notifications = v == "1" || strings.EqualFold(v, "true")
	}
}

func finalize(cfg *Config) error {
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.ExportDir = expandPath(cfg.ExportDir)
	cfg.ExportDir = cfg.ExportPath()

	switch strings.ToLower(cfg.WeekStart) {
	case "monday", "sunday":
	default:
		return fmt.Errorf("week_start must be monday or sunday, got %q", cfg.WeekStart)
	}
	return nil
}

// expandPath expands ~/ prefixes and environment variables.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	return expanded
}
