package fits

import (
	"math/bits"

	"github.com/cockroachdb/errors"
)

// Rice coding parameters per pixel width: bits used for the split code and
// the code value that marks an uncompressed (high entropy) block.
var riceParams = map[int]struct{ fsBits, fsMax int }{
	1: {3, 6},
	2: {4, 14},
	4: {5, 25},
}

// riceReader hands out bytes of the compressed stream and remembers whether
// it was asked for more than it holds.
type riceReader struct {
	buf     []byte
	pos     int
	overrun bool
}

func (r *riceReader) next() uint64 {
	if r.pos >= len(r.buf) {
		r.overrun = true
		return 0
	}
	c := r.buf[r.pos]
	r.pos++
	return uint64(c)
}

// riceDecode expands a RICE_1 stream into n pixels of bytePix bytes each.
// The stream starts with the first pixel verbatim, then for every block of
// blockSize pixels a split code followed by the zigzag coded differences.
func riceDecode(in []byte, n, bytePix, blockSize int) ([]int64, error) {
	p, ok := riceParams[bytePix]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCompression, "RICE_1 BYTEPIX %d", bytePix)
	}
	if blockSize <= 0 {
		return nil, errors.Wrapf(ErrMalformedTable, "RICE_1 BLOCKSIZE %d", blockSize)
	}
	if n <= 0 {
		return []int64{}, nil
	}
	// Every block carries at least its split code.
	blocks := n / blockSize
	if n%blockSize != 0 {
		blocks++
	}
	need, ok := mulSafe(blocks, p.fsBits)
	if !ok || len(in) < bytePix || need > 8*(len(in)-bytePix) {
		return nil, errors.Wrapf(ErrCorruptTile, "RICE_1 stream of %d bytes cannot hold %d pixels", len(in), n)
	}
	out := make([]int64, n)

	bBits := 8 * bytePix
	mask := uint64(1)<<uint(bBits) - 1
	r := &riceReader{buf: in}

	var last uint64
	for i := 0; i < bytePix; i++ {
		last = last<<8 | r.next()
	}
	b := r.next()
	nbits := 8

	for i := 0; i < n; {
		nbits -= p.fsBits
		for nbits < 0 {
			b = b<<8 | r.next()
			nbits += 8
		}
		fs := int(b>>uint(nbits)) - 1
		b &= 1<<uint(nbits) - 1

		end := min(i+blockSize, n)
		switch {
		case fs < 0:
			// every difference in the block is zero
			for ; i < end; i++ {
				out[i] = signed(last, bytePix)
			}
		case fs == p.fsMax:
			for ; i < end; i++ {
				k := bBits - nbits
				diff := b << uint(k)
				for k -= 8; k >= 0; k -= 8 {
					b = r.next()
					diff |= b << uint(k)
				}
				if nbits > 0 {
					b = r.next()
					diff |= b >> uint(-k)
					b &= 1<<uint(nbits) - 1
				} else {
					b = 0
				}
				last = (last + unzigzag(diff, mask)) & mask
				out[i] = signed(last, bytePix)
			}
		default:
			for ; i < end; i++ {
				for b == 0 {
					nbits += 8
					b = r.next()
					if r.overrun {
						return nil, errors.Wrap(ErrCorruptTile, "RICE_1 stream exhausted")
					}
				}
				nzero := nbits - bits.Len64(b)
				nbits -= nzero + 1
				b ^= 1 << uint(nbits)
				nbits -= fs
				for nbits < 0 {
					b = b<<8 | r.next()
					nbits += 8
				}
				diff := uint64(nzero)<<uint(fs) | b>>uint(nbits)
				b &= 1<<uint(nbits) - 1
				last = (last + unzigzag(diff&mask, mask)) & mask
				out[i] = signed(last, bytePix)
			}
		}
		if r.overrun {
			return nil, errors.Wrapf(ErrCorruptTile, "RICE_1 stream exhausted at pixel %d of %d", i, n)
		}
	}
	return out, nil
}

func unzigzag(diff, mask uint64) uint64 {
	if diff&1 == 0 {
		return diff >> 1
	}
	return ^(diff >> 1) & mask
}

// signed interprets the low bytePix bytes of v. Byte images are unsigned.
func signed(v uint64, bytePix int) int64 {
	switch bytePix {
	case 1:
		return int64(uint8(v))
	case 2:
		return int64(int16(uint16(v)))
	default:
		return int64(int32(uint32(v)))
	}
}
