package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the REST API client.
type APIConfig struct {
	// BaseURL is the root URL of the lost-and-found backend, including
	// the /api prefix (e.g. https://campusfind.example.edu/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// HubConfig holds settings for the realtime notification hub.
type HubConfig struct {
	// Path is the hub endpoint path relative to the server root
	// (the /api prefix of the base URL is stripped before appending).
	Path string `mapstructure:"path" yaml:"path"`

	// MaxRetries is how many consecutive failed connection attempts are
	// made before the channel gives up and waits for a manual retry.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// BackoffBaseMS is the initial reconnect delay in milliseconds;
	// the delay doubles after each consecutive failure.
	BackoffBaseMS int `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms"`

	// PingIntervalSec is how often a keepalive ping is sent while
	// connected.
	PingIntervalSec int `mapstructure:"ping_interval_sec" yaml:"ping_interval_sec"`
}

// CacheConfig holds settings for the local response cache.
type CacheConfig struct {
	// Path is the SQLite database file backing the response cache.
	Path string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig holds preferences for local device alerts.
type NotifyConfig struct {
	// Enabled controls whether inbound push events raise a desktop
	// notification.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AppConfig is the top-level client configuration.
type AppConfig struct {
	API    APIConfig    `mapstructure:"api" yaml:"api"`
	Hub    HubConfig    `mapstructure:"hub" yaml:"hub"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/campusfind/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "campusfind", "config.yaml")
}

// DefaultCachePath returns the default location of the response cache
// database, next to the configuration file.
func DefaultCachePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "cache.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			TimeoutSec: 30,
		},
		Hub: HubConfig{
			Path:            "/notificationHub",
			MaxRetries:      3,
			BackoffBaseMS:   1000,
			PingIntervalSec: 15,
		},
		Cache: CacheConfig{
			Path: DefaultCachePath(),
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("hub.path", "/notificationHub")
	v.SetDefault("hub.max_retries", 3)
	v.SetDefault("hub.backoff_base_ms", 1000)
	v.SetDefault("hub.ping_interval_sec", 15)
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("notify.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

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
	v.Set("hub", cfg.Hub)
	v.Set("cache", cfg.Cache)
	v.Set("notify", cfg.Notify)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
