package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/config"
)

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	App       AppConfig       `yaml:"app"`
	Storage   StorageConfig   `yaml:"storage"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

type StorageConfig struct {
	Platform  string `yaml:"platform"`
	DataDir   string `yaml:"data_dir"`
	Database  string `yaml:"database"`
	Encrypted bool   `yaml:"encrypted"`
}

type PrefsConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefix   string        `yaml:"key_prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type AnalyticsConfig struct {
	Sink string `yaml:"sink"`
}

type LoggingConfig struct {
	Mode       string `yaml:"mode"`
	Level      string `yaml:"level"`
	LogContent bool   `yaml:"log_content"`
}

// Load builds the configuration from the embedded defaults, the optional
// YAML file at path and environment overrides, in that order.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MINDATLAS_CONFIG")
	}

	opts := []config.YAMLOption{
		config.Source(bytes.NewReader(defaultYAML)),
		config.Expand(os.LookupEnv),
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.File(path))
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config provider: %w", err)
	}

	var cfg Config
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("failed to populate config: %w", err)
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables if present
func (c *Config) overrideFromEnv() {
	if val := os.Getenv("MINDATLAS_PLATFORM"); val != "" {
		c.Storage.Platform = val
	}
	if val := os.Getenv("MINDATLAS_DATA_DIR"); val != "" {
		c.Storage.DataDir = val
	}
	if val := os.Getenv("MINDATLAS_PREFS_BACKEND"); val != "" {
		c.Prefs.Backend = val
	}
	if val := os.Getenv("MINDATLAS_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
}

// Validate rejects settings the application does not support
func (c *Config) Validate() error {
	if c.Storage.Encrypted {
		return fmt.Errorf("storage.encrypted: encryption is not supported")
	}
	switch c.Storage.Platform {
	case "auto", "native", "web":
	default:
		return fmt.Errorf("storage.platform: unknown platform %q", c.Storage.Platform)
	}
	if c.Storage.Database == "" {
		return fmt.Errorf("storage.database: must not be empty")
	}
	switch c.Prefs.Backend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("prefs.backend: unknown backend %q", c.Prefs.Backend)
	}
	switch c.Analytics.Sink {
	case "slot", "store":
	default:
		return fmt.Errorf("analytics.sink: unknown sink %q", c.Analytics.Sink)
	}
	return nil
}

// ResolveDataDir returns the storage directory, defaulting to ~/.mindatlas
func (c *StorageConfig) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".mindatlas"), nil
}

// DatabasePath joins the data directory and database file name
func (c *StorageConfig) DatabasePath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Database), nil
}

// PrefsDir returns the preferences directory for the file backend
func (c *Config) PrefsDir() (string, error) {
	if c.Prefs.Dir != "" {
		return c.Prefs.Dir, nil
	}
	dir, err := c.Storage.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prefs"), nil
}
