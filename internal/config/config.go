// Package config handles the configuration directory, file paths and the
// settings loaded from config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskmon"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// TokenFile is the stored bearer token filename.
	TokenFile = "token.json"

	// EnvPrefix prefixes every environment override (TASKMON_SERVER_URL, ...).
	EnvPrefix = "TASKMON"

	// DefaultServerURL is the backend address used when nothing else is set.
	DefaultServerURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds a single backend call.
	DefaultTimeout = 10 * time.Second

	// DefaultLogLevel is the slog level used without --debug.
	DefaultLogLevel = "warn"
)

// Settings are the values that may come from config.yaml or TASKMON_* variables.
type Settings struct {
	ServerURL string        `mapstructure:"server_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LogLevel  string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings
}

var validate = validator.New()

// New creates a Config with default settings for the default or specified
// config directory. Nothing is read from disk.
// If configDir is empty, uses XDG_CONFIG_HOME/taskmon or $HOME/.config/taskmon.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir: dir,
		Settings: Settings{
			ServerURL: DefaultServerURL,
			Timeout:   DefaultTimeout,
			LogLevel:  DefaultLogLevel,
		},
	}, nil
}

// Load creates a Config for configDir and fills its settings from
// config.yaml (if present) and TASKMON_* environment variables.
// Environment variables take precedence over the file.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(cfg.SettingsPath())
	v.SetConfigType("yaml")
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", SettingsFile, err)
		}
	}

	if err := v.Unmarshal(&cfg.Settings); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if err := validate.Struct(c.Settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored bearer token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}
