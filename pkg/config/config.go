/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/fitsthumb/pkg/fits"
)

// EnvArchiveURL overrides Archive.URL when set.
const EnvArchiveURL = "ARCHIVE_API_URL"

// Config represents the fitsthumb configuration
type Config struct {
	Bind    string  `yaml:"bind"`
	Port    int     `yaml:"port"`
	Archive Archive `yaml:"archive"`
	Cache   Cache   `yaml:"cache"`
	Decode  Decode  `yaml:"decode"`
	Logging Logging `yaml:"logging"`
}

// Archive configures the frame archive client
type Archive struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxFrameBytes int64         `yaml:"max_frame_bytes"`
}

// Cache configures the frame summary cache
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// Decode configures the decode worker pool
type Decode struct {
	Workers       int  `yaml:"workers"`
	Queue         int  `yaml:"queue"`
	SkipMalformed bool `yaml:"skip_malformed"`
	MaxPixels     int  `yaml:"max_pixels"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Bind: "0.0.0.0",
		Port: 8000,
		Archive: Archive{
			URL:           "https://archive-api.lco.global",
			Timeout:       60 * time.Second,
			MaxFrameBytes: 512 << 20,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     "./data/cache",
			TTL:     24 * time.Hour,
		},
		Decode: Decode{
			Workers:   0,
			Queue:     64,
			MaxPixels: fits.DefaultMaxPixels,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf("port %d out of range", c.Port)
	}
	if c.Archive.URL == "" {
		return errors.New("archive.url is required")
	}
	if c.Archive.Timeout < 0 {
		return errors.Newf("archive.timeout %s is negative", c.Archive.Timeout)
	}
	if c.Archive.MaxFrameBytes < 0 {
		return errors.Newf("archive.max_frame_bytes %d is negative", c.Archive.MaxFrameBytes)
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return errors.New("cache.dir is required when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return errors.Newf("cache.ttl %s is negative", c.Cache.TTL)
	}
	if c.Decode.Workers < 0 || c.Decode.Queue < 0 {
		return errors.Newf("decode.workers %d and decode.queue %d must not be negative", c.Decode.Workers, c.Decode.Queue)
	}
	if c.Decode.MaxPixels < 0 {
		return errors.Newf("decode.max_pixels %d is negative", c.Decode.MaxPixels)
	}
	return nil
}

// ApplyEnv overlays settings taken from the environment.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvArchiveURL); ok && v != "" {
		c.Archive.URL = v
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./fitsthumb.yaml"
	}

	// For Linux/macOS, use ~/.config/fitsthumb/config.yaml
	return filepath.Join(homeDir, ".config", "fitsthumb", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
