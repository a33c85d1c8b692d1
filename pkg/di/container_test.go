package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitsthumb/pkg/archive"
	"github.com/ssargent/fitsthumb/pkg/cache"
	"github.com/ssargent/fitsthumb/pkg/config"
	"github.com/ssargent/fitsthumb/pkg/fits/fitstest"
)

// archiveStub serves one frame record and the file it points at.
func archiveStub(t *testing.T, frame []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/frames/77/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url":    srv.URL + "/files/77.fits.fz",
			"FILTER": "gp",
		})
	})
	mux.HandleFunc("/files/77.fits.fz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(frame)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestContainerDefaults(t *testing.T) {
	c := NewContainer(nil, nil)
	defer c.Close()

	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.NotNil(t, c.Logger())
	assert.IsType(t, &archive.Client{}, c.GetArchive())
	assert.NotNil(t, c.GetDecoder())
	assert.Same(t, c.GetPool(), c.GetPool())
	assert.Same(t, c.GetMetrics(), c.GetMetrics())
}

func TestContainerCacheDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	c := NewContainer(cfg, nil)
	defer c.Close()

	fc, err := c.GetCache()
	require.NoError(t, err)
	assert.Equal(t, cache.Nop{}, fc)
}

func TestContainerOpensCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	c := NewContainer(cfg, nil)

	fc, err := c.GetCache()
	require.NoError(t, err)
	assert.IsType(t, &cache.Store{}, fc)

	again, err := c.GetCache()
	require.NoError(t, err)
	assert.Same(t, fc, again)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestContainerCacheOpenError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(blocker, "cache")
	c := NewContainer(cfg, nil)
	defer c.Close()

	_, err := c.GetCache()
	assert.ErrorContains(t, err, "open cache")

	_, err = c.NewServer()
	assert.Error(t, err)
}

func TestContainerServesFrames(t *testing.T) {
	frame := fitstest.Ramp(5, 2)
	stub := archiveStub(t, frame)

	cfg := config.DefaultConfig()
	cfg.Archive.URL = stub.URL
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Decode.Workers = 2
	c := NewContainer(cfg, nil)
	defer c.Close()

	s, err := c.NewServer()
	require.NoError(t, err)
	h := s.Router()

	for i, wantCached := range []bool{false, true} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/77/", nil))
		require.Equal(t, http.StatusOK, w.Code, "request %d: %s", i, w.Body.String())

		var resp struct {
			Data struct {
				Width          uint32 `json:"width"`
				Height         uint32 `json:"height"`
				Pixels         int    `json:"pixels"`
				Filter         string `json:"filter"`
				FrameSizeBytes int64  `json:"frame_size_bytes"`
				Cached         bool   `json:"cached"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, uint32(5), resp.Data.Width)
		assert.Equal(t, uint32(2), resp.Data.Height)
		assert.Equal(t, 10, resp.Data.Pixels)
		assert.Equal(t, "gp", resp.Data.Filter)
		assert.Equal(t, int64(len(frame)), resp.Data.FrameSizeBytes)
		assert.Equal(t, wantCached, resp.Data.Cached)
	}

	summary, err := s.Summarize(context.Background(), 77, "")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Pixels)
}

func TestContainerOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	c := NewContainer(cfg, nil)
	defer c.Close()

	stub := archive.NewClient(archive.Config{BaseURL: "http://127.0.0.1:1"})
	c.SetArchive(stub)
	c.SetCache(cache.Nop{})
	assert.Same(t, stub, c.GetArchive())
}
