// Package di provides dependency injection container
package di

import (
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/fitsthumb/pkg/api" //nolint:depguard
	"github.com/ssargent/fitsthumb/pkg/archive"
	"github.com/ssargent/fitsthumb/pkg/cache"
	"github.com/ssargent/fitsthumb/pkg/config"
	"github.com/ssargent/fitsthumb/pkg/fits"
	"github.com/ssargent/fitsthumb/pkg/worker"
)

// Container holds all the dependencies for the application. Dependencies
// are built from the configuration on first use.
type Container struct {
	mu     sync.Mutex
	config *config.Config
	logger *slog.Logger

	archive api.FrameArchive
	decoder api.FrameDecoder
	cache   api.FrameCache
	store   *cache.Store
	pool    *worker.Pool
	metrics *api.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Container{config: cfg, logger: logger}
}

// Config returns the configuration the container was built with
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// GetArchive returns the archive client
func (c *Container) GetArchive() api.FrameArchive {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.archive == nil {
		c.archive = archive.NewClient(archive.Config{
			BaseURL:       c.config.Archive.URL,
			Timeout:       c.config.Archive.Timeout,
			MaxFrameBytes: c.config.Archive.MaxFrameBytes,
			Logger:        c.logger.With("component", "archive"),
		})
	}
	return c.archive
}

// SetArchive allows overriding the archive client (for testing)
func (c *Container) SetArchive(a api.FrameArchive) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archive = a
}

// GetDecoder returns the FITS decoder
func (c *Container) GetDecoder() api.FrameDecoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decoder == nil {
		c.decoder = fits.NewDecoder(fits.DecoderConfig{
			SkipMalformed: c.config.Decode.SkipMalformed,
			MaxPixels:     c.config.Decode.MaxPixels,
			Logger:        c.logger.With("component", "decoder"),
		})
	}
	return c.decoder
}

// SetDecoder allows overriding the decoder (for testing)
func (c *Container) SetDecoder(d api.FrameDecoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoder = d
}

// GetCache returns the summary cache, opening the on-disk store if caching
// is enabled and a no-op cache otherwise.
func (c *Container) GetCache() (api.FrameCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache != nil {
		return c.cache, nil
	}
	if !c.config.Cache.Enabled {
		c.cache = cache.Nop{}
		return c.cache, nil
	}
	store, err := cache.Open(c.config.Cache.Dir, cache.Options{
		TTL:    c.config.Cache.TTL,
		Logger: c.logger.With("component", "cache"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open cache")
	}
	c.store = store
	c.cache = store
	return c.cache, nil
}

// SetCache allows overriding the cache (for testing)
func (c *Container) SetCache(fc api.FrameCache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = fc
}

// GetPool returns the decode worker pool
func (c *Container) GetPool() *worker.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		c.pool = worker.NewPool(c.config.Decode.Workers, c.config.Decode.Queue)
	}
	return c.pool
}

// GetMetrics returns the API metrics
func (c *Container) GetMetrics() *api.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics == nil {
		c.metrics = api.NewMetrics()
	}
	return c.metrics
}

// NewServer assembles an API server from the container's dependencies
func (c *Container) NewServer() (*api.Server, error) {
	fc, err := c.GetCache()
	if err != nil {
		return nil, err
	}
	deps := api.Dependencies{
		Archive: c.GetArchive(),
		Decoder: c.GetDecoder(),
		Cache:   fc,
		Pool:    c.GetPool(),
		Metrics: c.GetMetrics(),
		Logger:  c.logger.With("component", "api"),
	}
	return api.NewServer(deps, api.ServerConfig{
		Bind: c.config.Bind,
		Port: c.config.Port,
	}), nil
}

// Close releases the worker pool and the cache store
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	if c.store != nil {
		err := c.store.Close()
		c.store = nil
		c.cache = nil
		return err
	}
	return nil
}
