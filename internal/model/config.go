package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the remote sync API.
type APIConfig struct {
	// BaseURL is the root URL of the backend (e.g., https://studytrack.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how often a rate-limited (429) request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// CSRFCookie names the cookie holding the request-forgery token.
	CSRFCookie string `mapstructure:"csrf_cookie" yaml:"csrf_cookie"`
}

// CacheConfig holds settings for the durable local cache.
type CacheConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// SyncConfig holds background revalidation settings.
type SyncConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// UserConfig remembers the last signed-in user.
type UserConfig struct {
	ID string `mapstructure:"id" yaml:"id"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API   APIConfig   `mapstructure:"api" yaml:"api"`
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
	Sync  SyncConfig  `mapstructure:"sync" yaml:"sync"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	User  UserConfig  `mapstructure:"user" yaml:"user"`
}

// configDir returns ~/.config/studytrack, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "studytrack")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/studytrack/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 30,
			MaxRetries: 3,
			CSRFCookie: "csrftoken",
		},
		Cache: CacheConfig{
			Path:   filepath.Join(dir, "cache.db"),
			Prefix: "studytrack",
		},
		Sync: SyncConfig{IntervalSec: 60},
		Log: LogConfig{
			Level: "INFO",
			File:  filepath.Join(dir, "logs", "studytrack.log"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.csrf_cookie", d.API.CSRFCookie)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("sync.interval_sec", d.Sync.IntervalSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("user.id", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with STUDYTRACK_ override file values
// (e.g. STUDYTRACK_API_BASE_URL). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("studytrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}
	if cfg.Sync.IntervalSec <= 0 {
		cfg.Sync.IntervalSec = 60
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("cache", cfg.Cache)
	v.Set("sync", cfg.Sync)
	v.Set("log", cfg.Log)
	v.Set("user", cfg.User)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
