package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/ssargent/fitsthumb/pkg/cache"
	"github.com/ssargent/fitsthumb/pkg/fits"
	"github.com/ssargent/fitsthumb/pkg/worker"
)

const welcomeMessage = "Welcome to the Thumbnail Service!"

// Dependencies are the collaborators a Server needs. Archive is required;
// the rest fall back to defaults when nil.
type Dependencies struct {
	Archive FrameArchive
	Decoder FrameDecoder
	Cache   FrameCache
	Pool    *worker.Pool
	Metrics *Metrics
	Logger  *slog.Logger
}

// Server holds the dependencies for the API handlers
type Server struct {
	archive FrameArchive
	decoder FrameDecoder
	cache   FrameCache
	pool    *worker.Pool
	metrics *Metrics
	logger  *slog.Logger
	config  ServerConfig
}

// NewServer creates a new API server
func NewServer(deps Dependencies, config ServerConfig) *Server {
	s := &Server{
		archive: deps.Archive,
		decoder: deps.Decoder,
		cache:   deps.Cache,
		pool:    deps.Pool,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		config:  config,
	}
	if s.decoder == nil {
		s.decoder = fits.NewDecoder(fits.DecoderConfig{})
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Metrics returns the server's metrics
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// handleWelcome godoc
// @Summary Welcome
// @Description Returns a plain text greeting
// @Tags system
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, welcomeMessage)
}

// handleHealth godoc
// @Summary Health check
// @Description Check if the service is healthy
// @Tags system
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleFrame godoc
// @Summary Frame summary
// @Description Fetches the frame from the archive, decodes it and returns its summary
// @Tags frames
// @Produce json
// @Param frame_id path int true "Archive frame id"
// @Param Authorization header string false "Forwarded to the archive"
// @Success 200 {object} APIResponse{data=FrameSummary}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 422 {object} APIResponse
// @Failure 502 {object} APIResponse
// @Router /{frame_id}/ [get]
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseFrameID(chi.URLParam(r, "frameID"))
	if err != nil {
		s.fail(w, s.logger, err)
		return
	}

	auth := r.Header.Get("Authorization")
	logger := s.logger.With("frame_id", id, "request_id", requestID(ctx))
	key := cacheKey(id, auth)

	if summary, ok := s.cached(key, logger); ok {
		summary.Cached = true
		sendSuccess(w, summary)
		return
	}

	summary, err := s.summarize(ctx, id, auth, logger)
	if err != nil {
		s.fail(w, logger, err)
		return
	}

	s.store(key, summary, logger)
	sendSuccess(w, summary)
}

// Summarize fetches, downloads and decodes one frame, bypassing the cache.
func (s *Server) Summarize(ctx context.Context, id uint32, auth string) (*FrameSummary, error) {
	return s.summarize(ctx, id, auth, s.logger.With("frame_id", id))
}

func (s *Server) summarize(ctx context.Context, id uint32, auth string, logger *slog.Logger) (*FrameSummary, error) {
	start := time.Now()
	record, err := s.archive.GetFrameRecord(ctx, id, auth)
	s.metrics.RecordArchiveOperation("lookup", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	data, err := s.archive.Download(ctx, record.URL)
	s.metrics.RecordArchiveOperation("download", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFrameSize(len(data))
	logger.Debug("downloaded frame", "bytes", len(data))

	img, err := s.decode(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("decoded frame", "width", img.Width, "height", img.Height, "pixels", len(img.Pixels))

	size := int64(len(data))
	return &FrameSummary{
		FrameID:        id,
		FrameSizeMB:    size / (1024 * 1024),
		FrameSizeBytes: size,
		Width:          img.Width,
		Height:         img.Height,
		Pixels:         len(img.Pixels),
		Filter:         record.Filter,
	}, nil
}

// decode runs the decoder on the worker pool when one is configured.
func (s *Server) decode(ctx context.Context, data []byte) (*fits.Image, error) {
	start := time.Now()
	var (
		img *fits.Image
		err error
	)
	if s.pool != nil {
		s.metrics.SetDecodeQueueDepth(s.pool.Pending())
		img, err = worker.Do(ctx, s.pool, func() (*fits.Image, error) {
			return s.decoder.Decode(data)
		})
	} else {
		img, err = s.decoder.Decode(data)
	}
	s.metrics.RecordDecode(err == nil, time.Since(start))
	return img, err
}

func (s *Server) cached(key string, logger *slog.Logger) (*FrameSummary, bool) {
	raw, ok, err := s.cache.Get(key)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup("error")
		logger.Warn("cache lookup failed", "error", err)
		return nil, false
	case !ok:
		s.metrics.RecordCacheLookup("miss")
		return nil, false
	}

	var summary FrameSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.metrics.RecordCacheLookup("error")
		logger.Warn("cached summary unreadable", "error", err)
		return nil, false
	}
	s.metrics.RecordCacheLookup("hit")
	return &summary, true
}

func (s *Server) store(key string, summary *FrameSummary, logger *slog.Logger) {
	raw, err := json.Marshal(summary)
	if err == nil {
		err = s.cache.Put(key, raw)
	}
	if err != nil {
		logger.Warn("cache store failed", "error", err)
	}
}

// fail logs err and writes the matching error response.
func (s *Server) fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := statusFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		logger.Error("frame request failed", "status", code, "error", err)
		if code == http.StatusInternalServerError {
			message = http.StatusText(code)
		}
	} else {
		logger.Info("frame request rejected", "status", code, "error", err)
	}
	sendError(w, message, code)
}

func parseFrameID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidFrameID, "%q", raw)
	}
	return uint32(id), nil
}

// cacheKey scopes summaries fetched with credentials to those credentials.
func cacheKey(id uint32, auth string) string {
	key := "frame/" + strconv.FormatUint(uint64(id), 10)
	if auth == "" {
		return key
	}
	sum := sha256.Sum256([]byte(auth))
	return key + "/" + hex.EncodeToString(sum[:8])
}
