// Package fitstest builds small FITS files for tests of code that consumes
// decoded frames.
package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const blockSize = 2880

// Card formats a fixed-format header card. Supported values are bool, int
// and string.
func Card(key string, value any) string {
	var v string
	switch x := value.(type) {
	case bool:
		v = "F"
		if x {
			v = "T"
		}
		v = fmt.Sprintf("%20s", v)
	case int:
		v = fmt.Sprintf("%20d", x)
	case string:
		v = fmt.Sprintf("'%-8s'", x)
	default:
		panic(fmt.Sprintf("fitstest: unsupported card value %T", value))
	}
	return fmt.Sprintf("%-8s= %s", key, v)
}

// Header renders cards followed by END, padded to whole blocks.
func Header(cards ...string) []byte {
	var buf bytes.Buffer
	for _, c := range append(cards, "END") {
		fmt.Fprintf(&buf, "%-80s", c)
	}
	return pad(buf.Bytes(), ' ')
}

// Primary returns an empty primary HDU.
func Primary() []byte {
	return Header(Card("SIMPLE", true), Card("BITPIX", 8), Card("NAXIS", 0), Card("EXTEND", true))
}

// FloatImage returns a primary HDU followed by a binary table holding a
// width x height image, one table row per image row.
func FloatImage(width, height int, pixels []float32) []byte {
	if len(pixels) != width*height {
		panic("fitstest: pixel count does not match dimensions")
	}
	data := make([]byte, 4*len(pixels))
	for i, p := range pixels {
		binary.BigEndian.PutUint32(data[4*i:], math.Float32bits(p))
	}
	hdr := Header(
		Card("XTENSION", "BINTABLE"), Card("BITPIX", 8), Card("NAXIS", 2),
		Card("NAXIS1", 4*width), Card("NAXIS2", height),
		Card("PCOUNT", 0), Card("GCOUNT", 1), Card("TFIELDS", 1),
		Card("TTYPE1", "PIXELS"), Card("TFORM1", fmt.Sprintf("%dE", width)),
		Card("ZNAXIS1", width), Card("ZNAXIS2", height),
	)
	out := append(Primary(), hdr...)
	return append(out, pad(data, 0)...)
}

// Ramp returns FloatImage filled with 0, 1, 2, ... in row-major order.
func Ramp(width, height int) []byte {
	pixels := make([]float32, width*height)
	for i := range pixels {
		pixels[i] = float32(i)
	}
	return FloatImage(width, height, pixels)
}

func pad(b []byte, fill byte) []byte {
	for len(b)%blockSize != 0 {
		b = append(b, fill)
	}
	return b
}
