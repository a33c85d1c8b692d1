package fits

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Image is one decoded image plane, row-major.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []float32
}

// Validate checks that the pixel count matches Width*Height. The decoder
// does not enforce this itself, so callers can tell decode failures apart
// from shape mismatches.
func (img *Image) Validate() error {
	want := uint64(img.Width) * uint64(img.Height)
	if uint64(len(img.Pixels)) != want {
		return errors.Wrapf(ErrShapeMismatch, "%dx%d image has %d pixels", img.Width, img.Height, len(img.Pixels))
	}
	return nil
}

// At returns the pixel at column x, row y.
func (img *Image) At(x, y int) float32 {
	return img.Pixels[y*int(img.Width)+x]
}

// Stats summarises the finite pixels of an image.
type Stats struct {
	Min   float32
	Max   float32
	Mean  float64
	Valid int // finite pixels
	Blank int // NaN or infinite pixels
}

// Stats computes min, max and mean over finite pixels.
func (img *Image) Stats() Stats {
	st := Stats{Min: float32(math.Inf(1)), Max: float32(math.Inf(-1))}
	var sum float64
	for _, p := range img.Pixels {
		f := float64(p)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			st.Blank++
			continue
		}
		st.Valid++
		sum += f
		st.Min = min(st.Min, p)
		st.Max = max(st.Max, p)
	}
	if st.Valid == 0 {
		st.Min, st.Max = 0, 0
		return st
	}
	st.Mean = sum / float64(st.Valid)
	return st
}

func dimension(h *Header, key string) (uint32, error) {
	n, err := h.Int(key)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, errors.Wrapf(ErrMalformedTable, "%s %d out of range", key, n)
	}
	return uint32(n), nil
}
