package fits

import (
	"math"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

type quantizeMethod uint8

const (
	noDither quantizeMethod = iota
	subtractiveDither1
	subtractiveDither2
	// notQuantized marks floats that were compressed losslessly.
	notQuantized
)

const (
	randomTableSize = 10000
	// ditherZeroValue marks an exact 0.0 pixel under SUBTRACTIVE_DITHER_2.
	ditherZeroValue = -2147483646
)

func parseQuantize(s string) (quantizeMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NO_DITHER":
		return noDither, nil
	case "SUBTRACTIVE_DITHER_1":
		return subtractiveDither1, nil
	case "SUBTRACTIVE_DITHER_2":
		return subtractiveDither2, nil
	case "NONE":
		return notQuantized, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedCompression, "ZQUANTIZ %q", s)
	}
}

// randomTable is the Park-Miller sequence shared by all writers of dithered
// FITS images.
var randomTable = sync.OnceValue(func() []float64 {
	const a, m = 16807.0, 2147483647.0
	t := make([]float64, randomTableSize)
	seed := 1.0
	for i := range t {
		temp := a * seed
		seed = temp - m*math.Trunc(temp/m)
		// stored at single precision, as every writer does
		t[i] = float64(float32(seed / m))
	}
	return t
})

// quantization holds the parameters to turn one tile of integers back into
// floats.
type quantization struct {
	method   quantizeMethod
	scale    float64
	zero     float64
	blank    int64
	hasBlank bool
	dither0  int64
}

// unquantize restores the floats of tile number tile (1-based table row).
func (q quantization) unquantize(ints []int64, tile int) []float32 {
	out := make([]float32, len(ints))
	if q.method == noDither || q.method == notQuantized {
		for i, v := range ints {
			if q.hasBlank && v == q.blank {
				out[i] = float32(math.NaN())
				continue
			}
			out[i] = float32(float64(v)*q.scale + q.zero)
		}
		return out
	}

	rnd := randomTable()
	iseed := int((int64(tile-1) + q.dither0 - 1) % randomTableSize)
	if iseed < 0 {
		iseed += randomTableSize
	}
	next := int(rnd[iseed] * 500)
	for i, v := range ints {
		switch {
		case q.hasBlank && v == q.blank:
			out[i] = float32(math.NaN())
		case q.method == subtractiveDither2 && v == ditherZeroValue:
			out[i] = 0
		default:
			out[i] = float32((float64(v)-rnd[next]+0.5)*q.scale + q.zero)
		}
		next++
		if next == randomTableSize {
			iseed++
			if iseed == randomTableSize {
				iseed = 0
			}
			next = int(rnd[iseed] * 500)
		}
	}
	return out
}
