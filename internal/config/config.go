// Package config manages mamba configuration loaded from .mambarc files,
// environment variables, and command-line flags via viper.
//
// Precedence (highest wins): command-line flags, MAMBA_* environment
// variables, config file, built-in defaults. Keys mirror the flat layout
// of .mambarc / .condarc files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all mamba configuration options
type Config struct {
	// UseLockfiles controls whether prefixes and cache directories are
	// protected by advisory lockfiles. When false, lock acquisition
	// returns no-op handles and never touches the filesystem.
	UseLockfiles bool `mapstructure:"use_lockfiles"`

	// LockTimeout is the number of seconds to wait for a lockfile held
	// by another process before giving up. 0 waits indefinitely.
	LockTimeout int `mapstructure:"lock_timeout"`

	// KeepTrash leaves *.mamba_trash files in place during clean runs;
	// they are reported but not deleted.
	KeepTrash bool `mapstructure:"keep_trash"`

	// KeepTempFiles prevents temporary files from being removed on
	// release. Useful when debugging failed transactions.
	KeepTempFiles bool `mapstructure:"keep_temp_files"`

	// KeepTempDirectories prevents temporary directories from being
	// removed on release.
	KeepTempDirectories bool `mapstructure:"keep_temp_directories"`

	// LogLevel sets the minimum severity that is emitted: debug, info,
	// warn, or error.
	LogLevel string `mapstructure:"log_level"`

	// LogFile redirects log output to the given file. Empty logs to
	// stderr.
	LogFile string `mapstructure:"log_file"`
}

// Default returns a Config with the same defaults upstream mamba ships
func Default() *Config {
	return &Config{
		UseLockfiles:        true,
		LockTimeout:         0,
		KeepTrash:           false,
		KeepTempFiles:       false,
		KeepTempDirectories: false,
		LogLevel:            "info",
		LogFile:             "",
	}
}

// LockTimeoutDuration converts the configured timeout to a time.Duration.
// Zero means wait indefinitely.
func (c *Config) LockTimeoutDuration() time.Duration {
	return time.Duration(c.LockTimeout) * time.Second
}

// SetDefaults registers default values with viper.
// Call this before viper.ReadInConfig so unset keys resolve to defaults.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("use_lockfiles", defaults.UseLockfiles)
	viper.SetDefault("lock_timeout", defaults.LockTimeout)
	viper.SetDefault("keep_trash", defaults.KeepTrash)
	viper.SetDefault("keep_temp_files", defaults.KeepTempFiles)
	viper.SetDefault("keep_temp_directories", defaults.KeepTempDirectories)
	viper.SetDefault("log_level", defaults.LogLevel)
	viper.SetDefault("log_file", defaults.LogFile)
}

// Load reads the configuration from viper into a Config struct and
// validates it. Returns ValidationErrors if any value is out of range.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the mamba configuration directory, honoring
// XDG_CONFIG_HOME when set
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mamba")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a relative directory if home cannot be determined
		return ".mamba"
	}
	return filepath.Join(home, ".config", "mamba")
}

// ConfigFile returns the path of the rc file inside ConfigDir. The file
// is extensionless YAML, matching upstream mamba's rc naming.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "mambarc")
}

// HomeRCFile returns the path of the traditional ~/.mambarc file, which
// takes precedence over ConfigFile when both exist.
func HomeRCFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mambarc")
}
