package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/fitsthumb/pkg/fits"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "0.0.0.0", config.Bind)
	assert.Equal(t, 8000, config.Port)
	assert.Equal(t, "0.0.0.0:8000", config.Addr())
	assert.Equal(t, "https://archive-api.lco.global", config.Archive.URL)
	assert.Equal(t, 60*time.Second, config.Archive.Timeout)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, config.Cache.TTL)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, fits.DefaultMaxPixels, config.Decode.MaxPixels)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		expectedConfig := &Config{
			Bind: "127.0.0.1",
			Port: 9000,
			Archive: Archive{
				URL:           "http://archive.local",
				Timeout:       5 * time.Second,
				MaxFrameBytes: 1 << 20,
			},
			Cache: Cache{
				Enabled: false,
				Dir:     "/var/cache/fitsthumb",
				TTL:     time.Hour,
			},
			Decode: Decode{
				Workers:       4,
				Queue:         8,
				SkipMalformed: true,
				MaxPixels:     1 << 20,
			},
			Logging: Logging{
				Level:  "debug",
				Format: "json",
			},
		}

		err := SaveConfig(expectedConfig, configPath)
		require.NoError(t, err)

		loadedConfig, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expectedConfig, loadedConfig)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		data := "port: 9100\narchive:\n  timeout: 90s\ncache:\n  ttl: 30m\n"
		require.NoError(t, os.WriteFile(configPath, []byte(data), 0600))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9100, config.Port)
		assert.Equal(t, "0.0.0.0", config.Bind)
		assert.Equal(t, 90*time.Second, config.Archive.Timeout)
		assert.Equal(t, "https://archive-api.lco.global", config.Archive.URL)
		assert.Equal(t, 30*time.Minute, config.Cache.TTL)
		assert.True(t, config.Cache.Enabled)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		_, err = LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := DefaultConfig()

	err := SaveConfig(config, configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedConfig, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loadedConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"port too large", func(c *Config) { c.Port = 70000 }, "port"},
		{"empty archive url", func(c *Config) { c.Archive.URL = "" }, "archive.url"},
		{"negative timeout", func(c *Config) { c.Archive.Timeout = -time.Second }, "archive.timeout"},
		{"negative frame limit", func(c *Config) { c.Archive.MaxFrameBytes = -1 }, "max_frame_bytes"},
		{"cache without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Minute }, "cache.ttl"},
		{"negative workers", func(c *Config) { c.Decode.Workers = -1 }, "decode.workers"},
		{"negative pixel limit", func(c *Config) { c.Decode.MaxPixels = -1 }, "decode.max_pixels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("disabled cache needs no dir", func(t *testing.T) {
		config := DefaultConfig()
		config.Cache.Enabled = false
		config.Cache.Dir = ""
		assert.NoError(t, config.Validate())
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvArchiveURL, "http://localhost:9999")
	config := DefaultConfig()
	config.ApplyEnv()
	assert.Equal(t, "http://localhost:9999", config.Archive.URL)

	t.Setenv(EnvArchiveURL, "")
	config = DefaultConfig()
	config.ApplyEnv()
	assert.Equal(t, "https://archive-api.lco.global", config.Archive.URL)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "fitsthumb")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	err := os.WriteFile(existingPath, []byte("test"), 0644)
	require.NoError(t, err)

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := DefaultConfig()
	config.Logging.Level = "warn"

	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_frame_bytes")
	assert.Contains(t, string(data), "ttl: 24h0m0s")

	var unmarshalled Config
	err = yaml.Unmarshal(data, &unmarshalled)
	require.NoError(t, err)
	assert.Equal(t, config, &unmarshalled)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()

	// a regular file where the config directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))
	invalidPath := filepath.Join(blocker, "sub", "config.yaml")

	err := SaveConfig(config, invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
