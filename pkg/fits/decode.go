package fits

import (
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// DecoderConfig controls how Decoder treats the HDUs of a file.
type DecoderConfig struct {
	// SkipMalformed keeps scanning when a binary table fails to decode
	// instead of returning its error at once.
	SkipMalformed bool
	// MaxPixels caps the pixels of one image or tile. Zero means
	// DefaultMaxPixels.
	MaxPixels int
	// Logger receives debug output about skipped HDUs. Nil discards it.
	Logger *slog.Logger
}

// DefaultMaxPixels bounds allocations driven by header dimensions, 2^27
// pixels or 512 MiB of float32.
const DefaultMaxPixels = 1 << 27

// Decoder extracts the first tile-compressed image from a FITS buffer.
// A Decoder holds no per-call state and is safe for concurrent use.
type Decoder struct {
	config DecoderConfig
	logger *slog.Logger
}

// NewDecoder creates a decoder.
func NewDecoder(config DecoderConfig) *Decoder {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.MaxPixels <= 0 {
		config.MaxPixels = DefaultMaxPixels
	}
	return &Decoder{config: config, logger: logger}
}

// Decode decodes the first binary table HDU of b with the default,
// fail-fast configuration.
func Decode(b []byte) (*Image, error) {
	return NewDecoder(DecoderConfig{}).Decode(b)
}

// Decode walks the HDUs of b and decodes the first binary table. HDUs of
// other kinds are skipped. If none is found the error is ErrNoImageHDU.
func (d *Decoder) Decode(b []byte) (*Image, error) {
	s := NewScanner(b)
	var skipped error
	for s.Next() {
		hdu := s.HDU()
		if hdu.Kind != KindBinaryTable {
			d.logger.Debug("skipping hdu", "index", hdu.Index, "kind", hdu.Kind.String())
			continue
		}
		img, err := decodeTable(hdu, d.config.MaxPixels)
		if err == nil {
			d.logger.Debug("decoded image",
				"index", hdu.Index, "width", img.Width, "height", img.Height, "pixels", len(img.Pixels))
			return img, nil
		}
		err = errors.Wrapf(err, "hdu %d", hdu.Index)
		if !d.config.SkipMalformed {
			return nil, err
		}
		d.logger.Warn("skipping malformed binary table", "index", hdu.Index, "error", err)
		if skipped == nil {
			skipped = err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if skipped != nil {
		return nil, errors.Mark(skipped, ErrNoImageHDU)
	}
	return nil, ErrNoImageHDU
}

// DecodeTable decodes the image carried by a binary table HDU. Width and
// height come from ZNAXIS1 and ZNAXIS2. Tables marked ZIMAGE = T are
// decompressed tile by tile; other tables contribute every cell, in row
// order, and must hold floating point columns only.
func DecodeTable(h *HDU) (*Image, error) {
	return decodeTable(h, DefaultMaxPixels)
}

func decodeTable(h *HDU, maxPixels int) (*Image, error) {
	width, err := dimension(h.Header, KeyWidth)
	if err != nil {
		return nil, err
	}
	height, err := dimension(h.Header, KeyHeight)
	if err != nil {
		return nil, err
	}
	t, err := NewTable(h)
	if err != nil {
		return nil, err
	}
	compressed, err := h.Header.BoolOr(keyZImage, false)
	if err != nil {
		return nil, err
	}

	var pixels []float32
	if compressed {
		ti, err := newTiledImage(t, maxPixels)
		if err != nil {
			return nil, err
		}
		if pixels, err = ti.decode(int(width), int(height)); err != nil {
			return nil, err
		}
	} else if pixels, err = decodeCells(t); err != nil {
		return nil, err
	}
	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

func decodeCells(t *Table) ([]float32, error) {
	var pixels []float32
	for row := 0; row < t.Rows; row++ {
		for i := range t.Columns {
			col := &t.Columns[i]
			s, err := t.Samples(row, col)
			if err != nil {
				return nil, err
			}
			vals, err := s.Float32s()
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", row+1, col.Index)
			}
			pixels = append(pixels, vals...)
		}
	}
	return pixels, nil
}
