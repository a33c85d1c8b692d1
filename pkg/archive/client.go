// Package archive talks to the frame archive API: it resolves a frame id to
// its record and downloads the referenced file.
package archive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultBaseURL is the public archive API.
const DefaultBaseURL = "https://archive-api.lco.global"

var (
	// ErrFrameNotFound indicates the archive has no record for the frame.
	ErrFrameNotFound = errors.New("archive: frame not found")
	// ErrUnauthorized indicates the archive rejected the credentials (401).
	ErrUnauthorized = errors.New("archive: unauthorized")
	// ErrForbidden indicates the credentials lack access to the frame (403).
	ErrForbidden = errors.New("archive: forbidden")
	// ErrUpstream indicates a transport failure or unexpected archive reply.
	ErrUpstream = errors.New("archive: upstream error")
	// ErrTooLarge indicates the frame exceeds the configured download limit.
	ErrTooLarge = errors.New("archive: frame too large")
)

// FrameRecord is the subset of an archive frame record the service uses.
type FrameRecord struct {
	URL      string `json:"url"`
	Filter   string `json:"FILTER"`
	Basename string `json:"basename,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each archive call. Zero leaves it to the context.
	Timeout time.Duration
	// MaxFrameBytes caps downloads. Zero means no limit.
	MaxFrameBytes int64
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	timeout  time.Duration
	maxBytes int64
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates an archive client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:  base,
		timeout:  cfg.Timeout,
		maxBytes: cfg.MaxFrameBytes,
		http:     hc,
		logger:   logger,
	}
}

// GetFrameRecord fetches GET {base}/frames/{id}/. auth, when non-empty, is
// sent verbatim as the Authorization header.
func (c *Client) GetFrameRecord(ctx context.Context, id uint32, auth string) (*FrameRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	url := c.baseURL + "/frames/" + strconv.FormatUint(uint64(id), 10) + "/"
	resp, err := c.get(ctx, url, auth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "frame %d", id); err != nil {
		return nil, err
	}
	var rec FrameRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode frame %d record", id), ErrUpstream)
	}
	if rec.URL == "" {
		return nil, errors.Wrapf(ErrUpstream, "frame %d record has no url", id)
	}
	return &rec, nil
}

// Download fetches the file at url. Frame URLs are pre-signed, so no
// credentials are sent.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	c.logger.Debug("starting frame download", "url", redact(url))
	resp, err := c.get(ctx, url, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "download"); err != nil {
		return nil, err
	}
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes, limit %d", resp.ContentLength, c.maxBytes)
	}

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read frame body"), ErrUpstream)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "more than %d bytes", c.maxBytes)
	}
	c.logger.Debug("finished frame download", "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) get(ctx context.Context, url, auth string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "build request"), ErrUpstream)
	}
	req.Header.Set("Accept", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "GET %s", redact(url)), ErrUpstream)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, format string, args ...any) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(ErrFrameNotFound, format, args...)
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrapf(ErrUnauthorized, format, args...)
	case resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(ErrForbidden, format, args...)
	default:
		return errors.Wrapf(ErrUpstream, format+": status %d", append(args, resp.StatusCode)...)
	}
}

// redact drops the query string, which carries signatures on frame URLs.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
