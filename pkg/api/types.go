package api

import (
	"context"
	"time"

	"github.com/ssargent/fitsthumb/pkg/archive"
	"github.com/ssargent/fitsthumb/pkg/fits"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FrameSummary describes a decoded archive frame
type FrameSummary struct {
	FrameID        uint32 `json:"frame_id"`
	FrameSizeMB    int64  `json:"frame_size_mb"`
	FrameSizeBytes int64  `json:"frame_size_bytes"`
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
	Pixels         int    `json:"pixels"`
	Filter         string `json:"filter,omitempty"`
	Cached         bool   `json:"cached"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind            string
	Port            int
	ShutdownTimeout time.Duration
}

// FrameArchive looks up and downloads frames
type FrameArchive interface {
	GetFrameRecord(ctx context.Context, id uint32, auth string) (*archive.FrameRecord, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// FrameCache stores encoded frame summaries
type FrameCache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// FrameDecoder turns FITS bytes into an image
type FrameDecoder interface {
	Decode(b []byte) (*fits.Image, error)
}
