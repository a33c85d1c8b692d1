package fits

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// SampleKind tags a block of decoded values with its numeric type.
type SampleKind uint8

const (
	SampleInvalid SampleKind = iota
	SampleLogical
	SampleBit
	SampleChar
	SampleUint8
	SampleInt16
	SampleInt32
	SampleInt64
	SampleFloat32
	SampleFloat64
	SampleComplex64
	SampleComplex128
)

func (k SampleKind) String() string {
	switch k {
	case SampleLogical:
		return "logical"
	case SampleBit:
		return "bit"
	case SampleChar:
		return "char"
	case SampleUint8:
		return "uint8"
	case SampleInt16:
		return "int16"
	case SampleInt32:
		return "int32"
	case SampleInt64:
		return "int64"
	case SampleFloat32:
		return "float32"
	case SampleFloat64:
		return "float64"
	case SampleComplex64:
		return "complex64"
	case SampleComplex128:
		return "complex128"
	default:
		return "invalid"
	}
}

// IsFloat reports whether k is a real floating point kind.
func (k SampleKind) IsFloat() bool {
	return k == SampleFloat32 || k == SampleFloat64
}

// IsInteger reports whether k is an integer kind.
func (k SampleKind) IsInteger() bool {
	switch k {
	case SampleUint8, SampleInt16, SampleInt32, SampleInt64:
		return true
	}
	return false
}

// Size returns the stored width of one value in bytes, or 0 for kinds that
// are not byte addressable.
func (k SampleKind) Size() int {
	switch k {
	case SampleLogical, SampleChar, SampleUint8:
		return 1
	case SampleInt16:
		return 2
	case SampleInt32, SampleFloat32:
		return 4
	case SampleInt64, SampleFloat64, SampleComplex64:
		return 8
	case SampleComplex128:
		return 16
	default:
		return 0
	}
}

// Samples is a run of decoded values sharing one kind. Float kinds fill
// Floats, integer kinds fill Ints, everything else keeps Raw bytes.
type Samples struct {
	Kind   SampleKind
	Floats []float32
	Ints   []int64
	Raw    []byte
}

// Len returns the number of values held.
func (s Samples) Len() int {
	switch {
	case s.Kind.IsFloat():
		return len(s.Floats)
	case s.Kind.IsInteger():
		return len(s.Ints)
	case s.Kind.Size() > 0:
		return len(s.Raw) / s.Kind.Size()
	default:
		return len(s.Raw)
	}
}

// Float32s returns the values as pixels. Only floating point samples are
// accepted; any other kind is ErrUnsupportedDataType.
func (s Samples) Float32s() ([]float32, error) {
	if !s.Kind.IsFloat() {
		return nil, errors.Wrapf(ErrUnsupportedDataType, "samples are %s, want floating point", s.Kind)
	}
	return s.Floats, nil
}

// kindForBitpix maps a BITPIX/ZBITPIX value to a sample kind.
func kindForBitpix(bitpix int64) SampleKind {
	switch bitpix {
	case 8:
		return SampleUint8
	case 16:
		return SampleInt16
	case 32:
		return SampleInt32
	case 64:
		return SampleInt64
	case -32:
		return SampleFloat32
	case -64:
		return SampleFloat64
	default:
		return SampleInvalid
	}
}

// decodeBigEndian converts raw big-endian storage into samples of kind.
// Trailing bytes that do not form a whole value are ignored.
func decodeBigEndian(kind SampleKind, raw []byte) Samples {
	s := Samples{Kind: kind}
	size := kind.Size()
	if size == 0 {
		s.Raw = raw
		return s
	}
	n := len(raw) / size
	switch kind {
	case SampleFloat32:
		s.Floats = make([]float32, n)
		for i := range s.Floats {
			s.Floats[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:]))
		}
	case SampleFloat64:
		s.Floats = make([]float32, n)
		for i := range s.Floats {
			s.Floats[i] = float32(math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:])))
		}
	case SampleUint8:
		s.Ints = make([]int64, n)
		for i := range s.Ints {
			s.Ints[i] = int64(raw[i])
		}
	case SampleInt16:
		s.Ints = make([]int64, n)
		for i := range s.Ints {
			s.Ints[i] = int64(int16(binary.BigEndian.Uint16(raw[i*2:])))
		}
	case SampleInt32:
		s.Ints = make([]int64, n)
		for i := range s.Ints {
			s.Ints[i] = int64(int32(binary.BigEndian.Uint32(raw[i*4:])))
		}
	case SampleInt64:
		s.Ints = make([]int64, n)
		for i := range s.Ints {
			s.Ints[i] = int64(binary.BigEndian.Uint64(raw[i*8:]))
		}
	default:
		s.Raw = raw[:n*size]
	}
	return s
}
