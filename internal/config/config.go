// Package config loads centavo configuration from file, environment, and
// defaults, in that order of increasing precedence for the environment.
//
// The config file lives at ~/.centavo/config.yaml by default; every key
// can be overridden with a CENTAVO_-prefixed environment variable
// (dots become underscores, e.g. CENTAVO_REMOTE_URL).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// DBPath is the local SQLite database file.
	DBPath string `mapstructure:"db_path"`

	Remote struct {
		// URL is the sync backend base URL. Empty disables sync.
		URL string `mapstructure:"url"`
		// Token is the bearer token identifying the user.
		Token string `mapstructure:"token"`
	} `mapstructure:"remote"`

	Sync struct {
		Interval  time.Duration `mapstructure:"interval"`
		Debounce  time.Duration `mapstructure:"debounce"`
		Retention time.Duration `mapstructure:"retention"`
	} `mapstructure:"sync"`

	Server struct {
		Addr      string `mapstructure:"addr"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"server"`

	Dashboard struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"dashboard"`

	Log struct {
		Level string `mapstructure:"level"`
		// File enables rotated file logging when set; empty logs to
		// stderr only.
		File string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// DefaultDir returns the centavo data directory (~/.centavo).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".centavo"
	}
	return filepath.Join(home, ".centavo")
}

// Load reads configuration. path may be empty, in which case the default
// location is used and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", filepath.Join(DefaultDir(), "centavo.db"))
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.debounce", 2*time.Second)
	v.SetDefault("sync.retention", 30*24*time.Hour)
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetEnvPrefix("CENTAVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.Sync.Interval < 0 || c.Sync.Debounce < 0 || c.Sync.Retention < 0 {
		return fmt.Errorf("sync durations cannot be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	return nil
}
