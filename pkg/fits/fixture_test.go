package fits

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// kv formats a header card in fixed format.
func kv(key string, value any) string {
	var v string
	switch x := value.(type) {
	case bool:
		v = fmt.Sprintf("%20s", map[bool]string{true: "T", false: "F"}[x])
	case int:
		v = fmt.Sprintf("%20d", x)
	case int64:
		v = fmt.Sprintf("%20d", x)
	case float64:
		v = fmt.Sprintf("%20s", fmt.Sprintf("%.15G", x))
	case string:
		v = fmt.Sprintf("'%-8s'", strings.ReplaceAll(x, "'", "''"))
	default:
		panic(fmt.Sprintf("kv: unsupported %T", value))
	}
	return fmt.Sprintf("%-8s= %s", key, v)
}

// headerBlock renders cards plus END, padded with blanks to a block.
func headerBlock(cards ...string) []byte {
	var buf bytes.Buffer
	for _, c := range append(cards, "END") {
		buf.WriteString(fmt.Sprintf("%-80s", c))
	}
	for buf.Len()%BlockSize != 0 {
		buf.WriteByte(' ')
	}
	return buf.Bytes()
}

// padData zero-pads data to a whole number of blocks.
func padData(data []byte) []byte {
	out := make([]byte, AlignBlock(len(data)))
	copy(out, data)
	return out
}

func primaryHDU() []byte {
	return headerBlock(kv("SIMPLE", true), kv("BITPIX", 8), kv("NAXIS", 0), kv("EXTEND", true))
}

// imageHDU is an uncompressed 16-bit image extension.
func imageHDU(w, h int) []byte {
	hdr := headerBlock(kv("XTENSION", "IMAGE"), kv("BITPIX", 16), kv("NAXIS", 2),
		kv("NAXIS1", w), kv("NAXIS2", h), kv("PCOUNT", 0), kv("GCOUNT", 1))
	return append(hdr, padData(make([]byte, 2*w*h))...)
}

type tableColumn struct {
	name string
	form string
}

// tableBuilder assembles a BINTABLE extension with a heap.
type tableBuilder struct {
	cards   []string
	columns []tableColumn
	rows    [][]byte
	heap    []byte
}

// descriptor appends data to the heap and returns a 'P' descriptor for n
// elements.
func (b *tableBuilder) descriptor(data []byte, n int) []byte {
	d := make([]byte, 8)
	binary.BigEndian.PutUint32(d[0:], uint32(n))
	binary.BigEndian.PutUint32(d[4:], uint32(len(b.heap)))
	b.heap = append(b.heap, data...)
	return d
}

func (b *tableBuilder) bytes() []byte {
	width := 0
	if len(b.rows) > 0 {
		width = len(b.rows[0])
	}
	cards := []string{
		kv("XTENSION", "BINTABLE"), kv("BITPIX", 8), kv("NAXIS", 2),
		kv("NAXIS1", width), kv("NAXIS2", len(b.rows)),
		kv("PCOUNT", len(b.heap)), kv("GCOUNT", 1), kv("TFIELDS", len(b.columns)),
	}
	for i, c := range b.columns {
		cards = append(cards, kv(fmt.Sprintf("TTYPE%d", i+1), c.name), kv(fmt.Sprintf("TFORM%d", i+1), c.form))
	}
	cards = append(cards, b.cards...)

	var data []byte
	for _, r := range b.rows {
		data = append(data, r...)
	}
	data = append(data, b.heap...)
	return append(headerBlock(cards...), padData(data)...)
}

func be64f(f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b
}

func be32f(f float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(f))
	return b
}

func be32i(vals []int64) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(b[4*i:], uint32(int32(v)))
	}
	return b
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// quantizedTile holds the integers of one tile and its scaling.
type quantizedTile struct {
	ints  []int64
	scale float64
	zero  float64
}

// compressedImageHDU builds a tile-compressed float image with one tile per
// image row. encode turns a tile's integers into COMPRESSED_DATA bytes.
func compressedImageHDU(width int, tiles []quantizedTile, cmpType, quantize string, extra []string, encode func([]int64) []byte) []byte {
	b := &tableBuilder{
		columns: []tableColumn{
			{"COMPRESSED_DATA", "1PB(4096)"},
			{"ZSCALE", "1D"},
			{"ZZERO", "1D"},
		},
	}
	for _, tile := range tiles {
		payload := encode(tile.ints)
		row := b.descriptor(payload, len(payload))
		row = append(row, be64f(tile.scale)...)
		row = append(row, be64f(tile.zero)...)
		b.rows = append(b.rows, row)
	}
	b.cards = append([]string{
		kv("ZIMAGE", true),
		kv("ZCMPTYPE", cmpType),
		kv("ZBITPIX", -32),
		kv("ZNAXIS", 2),
		kv("ZNAXIS1", width),
		kv("ZNAXIS2", len(tiles)),
		kv("ZTILE1", width),
		kv("ZTILE2", 1),
		kv("ZQUANTIZ", quantize),
	}, extra...)
	return b.bytes()
}

// bitWriter packs bits most significant first.
type bitWriter struct {
	out []byte
	acc byte
	n   int
}

func (w *bitWriter) write(v uint64, nbits int) {
	for i := nbits - 1; i >= 0; i-- {
		w.acc = w.acc<<1 | byte(v>>uint(i)&1)
		w.n++
		if w.n == 8 {
			w.out = append(w.out, w.acc)
			w.acc, w.n = 0, 0
		}
	}
}

func (w *bitWriter) flush() []byte {
	if w.n > 0 {
		w.out = append(w.out, w.acc<<uint(8-w.n))
		w.acc, w.n = 0, 0
	}
	return w.out
}

// riceEncode is the reference RICE_1 compressor used to produce fixtures.
func riceEncode(vals []int64, bytePix, blockSize int) []byte {
	p := riceParams[bytePix]
	bBits := 8 * bytePix
	mask := uint64(1)<<uint(bBits) - 1
	w := &bitWriter{}
	if len(vals) == 0 {
		return nil
	}
	w.write(uint64(vals[0])&mask, bBits)
	last := vals[0]
	diffs := make([]uint64, blockSize)
	for i := 0; i < len(vals); i += blockSize {
		n := min(blockSize, len(vals)-i)
		var sum float64
		for j := 0; j < n; j++ {
			pd := wrapSigned(vals[i+j]-last, bBits)
			if pd < 0 {
				diffs[j] = uint64(^(pd << 1))
			} else {
				diffs[j] = uint64(pd << 1)
			}
			sum += float64(diffs[j])
			last = vals[i+j]
		}
		dpsum := (sum - float64(n/2) - 1) / float64(n)
		if dpsum < 0 {
			dpsum = 0
		}
		psum := uint64(dpsum) >> 1
		fs := 0
		for ; psum > 0; fs++ {
			psum >>= 1
		}
		switch {
		case fs >= p.fsMax:
			w.write(uint64(p.fsMax+1), p.fsBits)
			for j := 0; j < n; j++ {
				w.write(diffs[j], bBits)
			}
		case fs == 0 && sum == 0:
			w.write(0, p.fsBits)
		default:
			w.write(uint64(fs+1), p.fsBits)
			for j := 0; j < n; j++ {
				top := diffs[j] >> uint(fs)
				for k := uint64(0); k < top; k++ {
					w.write(0, 1)
				}
				w.write(1, 1)
				if fs > 0 {
					w.write(diffs[j]&(1<<uint(fs)-1), fs)
				}
			}
		}
	}
	return w.flush()
}

// wrapSigned reduces v to a signed value of the given bit width.
func wrapSigned(v int64, width int) int64 {
	v &= int64(1)<<uint(width) - 1
	if v >= int64(1)<<uint(width-1) {
		v -= int64(1) << uint(width)
	}
	return v
}
