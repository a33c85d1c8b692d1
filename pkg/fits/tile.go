package fits

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

// Columns of a tile-compressed image table. Each row holds one tile.
const (
	colCompressed   = "COMPRESSED_DATA"
	colGzip         = "GZIP_COMPRESSED_DATA"
	colUncompressed = "UNCOMPRESSED_DATA"
)

// Compression algorithms (ZCMPTYPE).
const (
	CompressRice      = "RICE_1"
	CompressGzip1     = "GZIP_1"
	CompressGzip2     = "GZIP_2"
	CompressNone      = "NOCOMPRESS"
	CompressPlio      = "PLIO_1"
	CompressHCompress = "HCOMPRESS_1"
)

const (
	defaultBlockSize = 32
	maxAxes          = 999

	// maxDeflateRatio is the largest expansion deflate can produce.
	maxDeflateRatio = 1032
)

// tiledImage is a tile-compressed image stored in a binary table.
type tiledImage struct {
	table     *Table
	cmpType   string
	kind      SampleKind // kind of the uncompressed image (ZBITPIX)
	axes      []int      // ZNAXISn
	tile      []int      // ZTILEn
	grid      []int      // tiles along each axis
	blockSize int
	bytePix   int
	maxPixels int
	quant     quantization
	quantized bool

	compressed   *Column
	gzipped      *Column
	uncompressed *Column
	scaleCol     *Column
	zeroCol      *Column
	blankCol     *Column
}

func newTiledImage(t *Table, maxPixels int) (*tiledImage, error) {
	hdr := t.hdu.Header
	cmp, err := hdr.Text(keyZCmpType)
	if err != nil {
		return nil, err
	}
	ti := &tiledImage{
		table:     t,
		cmpType:   strings.ToUpper(strings.TrimSpace(cmp)),
		maxPixels: maxPixels,
	}
	switch ti.cmpType {
	case CompressRice, "RICE_ONE", CompressGzip1, CompressGzip2, CompressNone:
	default:
		return nil, errors.Wrapf(ErrUnsupportedCompression, "ZCMPTYPE %q", cmp)
	}

	bitpix, err := hdr.Int(keyZBitpix)
	if err != nil {
		return nil, err
	}
	if ti.kind = kindForBitpix(bitpix); ti.kind == SampleInvalid {
		return nil, errors.Wrapf(ErrMalformedTable, "ZBITPIX %d", bitpix)
	}

	if err := ti.readGeometry(hdr); err != nil {
		return nil, err
	}
	if err := ti.readParams(hdr); err != nil {
		return nil, err
	}

	ti.compressed, _ = t.Column(colCompressed)
	ti.gzipped, _ = t.Column(colGzip)
	ti.uncompressed, _ = t.Column(colUncompressed)
	ti.scaleCol, _ = t.Column(keyZScale)
	ti.zeroCol, _ = t.Column(keyZZero)
	ti.blankCol, _ = t.Column(keyZBlank)
	if ti.compressed == nil && ti.gzipped == nil && ti.uncompressed == nil {
		return nil, errors.Wrapf(ErrMalformedTable, "no %s column", colCompressed)
	}
	for _, c := range []*Column{ti.compressed, ti.gzipped} {
		if c != nil && !c.IsVariable() {
			return nil, errors.Wrapf(ErrMalformedTable, "column %s is not variable length", c.Name)
		}
	}

	if err := ti.readQuantization(hdr); err != nil {
		return nil, err
	}
	return ti, nil
}

func (ti *tiledImage) readGeometry(hdr *Header) error {
	naxis, err := hdr.Int(keyZNaxis)
	if err != nil {
		return err
	}
	if naxis < 1 || naxis > maxAxes {
		return errors.Wrapf(ErrMalformedTable, "ZNAXIS %d", naxis)
	}
	tiles, tilePixels := 1, 1
	for i := 1; i <= int(naxis); i++ {
		n, err := hdr.Int(keyZNaxis + strconv.Itoa(i))
		if err != nil {
			return err
		}
		def := int64(1)
		if i == 1 {
			def = n
		}
		size, err := hdr.IntOr("ZTILE"+strconv.Itoa(i), def)
		if err != nil {
			return err
		}
		if n < 0 || size <= 0 && n > 0 {
			return errors.Wrapf(ErrMalformedTable, "ZNAXIS%d %d ZTILE%d %d", i, n, i, size)
		}
		size = max(size, 1)
		count := int((n + size - 1) / size)
		ti.axes = append(ti.axes, int(n))
		ti.tile = append(ti.tile, int(size))
		ti.grid = append(ti.grid, count)
		var ok bool
		if tiles, ok = mulSafe(tiles, count); !ok {
			return errors.Wrap(ErrMalformedTable, "tile count overflows")
		}
		tilePixels, ok = mulSafe(tilePixels, int(min(size, n)))
		if !ok || tilePixels > ti.maxPixels {
			return errors.Wrapf(ErrMalformedTable, "tiles exceed %d pixels", ti.maxPixels)
		}
	}
	if tiles != ti.table.Rows {
		return errors.Wrapf(ErrMalformedTable, "%d tiles expected, table has %d rows", tiles, ti.table.Rows)
	}
	return nil
}

// readParams reads the ZNAMEi/ZVALi algorithm parameters.
func (ti *tiledImage) readParams(hdr *Header) error {
	ti.blockSize = defaultBlockSize
	ti.bytePix = ti.kind.Size()
	if ti.kind.IsFloat() {
		ti.bytePix = 4
	}
	for i := 1; ; i++ {
		name, err := hdr.TextOr("ZNAME"+strconv.Itoa(i), "")
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		val, err := hdr.Int("ZVAL" + strconv.Itoa(i))
		if err != nil {
			return err
		}
		switch strings.ToUpper(name) {
		case "BLOCKSIZE":
			ti.blockSize = int(val)
		case "BYTEPIX":
			ti.bytePix = int(val)
		}
	}
}

func (ti *tiledImage) readQuantization(hdr *Header) error {
	method, err := hdr.TextOr(keyZQuantiz, "")
	if err != nil {
		return err
	}
	q := quantization{scale: 1}
	if q.method, err = parseQuantize(method); err != nil {
		return err
	}
	if q.dither0, err = hdr.IntOr(keyZDither0, 1); err != nil {
		return err
	}
	if q.scale, err = hdr.FloatOr(keyZScale, 1); err != nil {
		return err
	}
	if q.zero, err = hdr.FloatOr(keyZZero, 0); err != nil {
		return err
	}
	if hdr.Has(keyZBlank) {
		if q.blank, err = hdr.Int(keyZBlank); err != nil {
			return err
		}
		q.hasBlank = true
	}
	ti.quant = q
	ti.quantized = ti.kind.IsFloat() && q.method != notQuantized &&
		(ti.scaleCol != nil || hdr.Has(keyZScale))
	return nil
}

// tileGeometry returns the number of pixels stored in tile row and the
// tile's origin and extent within the first image plane. plane is false
// for tiles lying beyond the first plane.
func (ti *tiledImage) tileGeometry(row int) (pixels, x0, y0, w, h int, plane bool) {
	pixels, w, h, plane = 1, 1, 1, true
	r := row
	for i := range ti.axes {
		c := r % ti.grid[i]
		r /= ti.grid[i]
		extent := min(ti.tile[i], ti.axes[i]-c*ti.tile[i])
		pixels *= extent
		switch i {
		case 0:
			x0, w = c*ti.tile[i], extent
		case 1:
			y0, h = c*ti.tile[i], extent
		default:
			if c != 0 {
				plane = false
			}
		}
	}
	return pixels, x0, y0, w, h, plane
}

// decode reassembles the first image plane, width*height pixels row-major.
func (ti *tiledImage) decode(width, height int) ([]float32, error) {
	n, ok := mulSafe(width, height)
	if !ok || n > ti.maxPixels {
		return nil, errors.Wrapf(ErrMalformedTable, "image %dx%d exceeds %d pixels", width, height, ti.maxPixels)
	}
	if width != ti.axes[0] || len(ti.axes) > 1 && height != ti.axes[1] {
		return nil, errors.Wrapf(ErrMalformedTable, "image %dx%d disagrees with ZNAXISn", width, height)
	}
	pixels := make([]float32, n)
	for row := 0; row < ti.table.Rows; row++ {
		count, x0, y0, w, h, plane := ti.tileGeometry(row)
		if !plane {
			continue
		}
		s, err := ti.decodeTile(row, count)
		if err != nil {
			return nil, errors.Wrapf(err, "tile %d", row+1)
		}
		vals, err := s.Float32s()
		if err != nil {
			return nil, errors.Wrapf(err, "tile %d", row+1)
		}
		if len(vals) < w*h {
			return nil, errors.Wrapf(ErrCorruptTile, "tile %d: %d pixels, want %d", row+1, len(vals), w*h)
		}
		for y := 0; y < h; y++ {
			dst := (y0+y)*width + x0
			copy(pixels[dst:dst+w], vals[y*w:(y+1)*w])
		}
	}
	return pixels, nil
}

// decodeTile returns the n pixels of tile row. Writers fall back to a
// losslessly gzipped or an uncompressed copy for tiles they could not
// compress, leaving COMPRESSED_DATA empty.
func (ti *tiledImage) decodeTile(row, n int) (Samples, error) {
	if ti.compressed != nil {
		raw, _, err := ti.table.HeapArray(row, ti.compressed)
		if err != nil {
			return Samples{}, err
		}
		if len(raw) > 0 {
			return ti.decompress(raw, row, n)
		}
	}
	if ti.gzipped != nil {
		raw, _, err := ti.table.HeapArray(row, ti.gzipped)
		if err != nil {
			return Samples{}, err
		}
		if len(raw) > 0 {
			data, err := gunzip(raw, n*ti.kind.Size())
			if err != nil {
				return Samples{}, err
			}
			return decodeBigEndian(ti.kind, data), nil
		}
	}
	if ti.uncompressed != nil {
		return ti.table.Samples(row, ti.uncompressed)
	}
	return Samples{}, errors.Wrap(ErrCorruptTile, "tile holds no data")
}

func (ti *tiledImage) decompress(raw []byte, row, n int) (Samples, error) {
	stored := ti.kind
	if ti.quantized {
		stored = SampleInt32
	}

	var ints []int64
	switch ti.cmpType {
	case CompressRice, "RICE_ONE":
		if stored.IsFloat() {
			return Samples{}, errors.Wrap(ErrUnsupportedCompression, "RICE_1 requires quantized floats")
		}
		var err error
		if ints, err = riceDecode(raw, n, ti.bytePix, ti.blockSize); err != nil {
			return Samples{}, err
		}
	default:
		size := n * stored.Size()
		data := raw
		if ti.cmpType != CompressNone {
			var err error
			if data, err = gunzip(raw, size); err != nil {
				return Samples{}, err
			}
		}
		if len(data) < size {
			return Samples{}, errors.Wrapf(ErrCorruptTile, "%d bytes, want %d", len(data), size)
		}
		data = data[:size]
		if ti.cmpType == CompressGzip2 {
			data = unshuffle(data, stored.Size())
		}
		s := decodeBigEndian(stored, data)
		if s.Kind.IsFloat() {
			return s, nil
		}
		ints = s.Ints
	}

	if !ti.quantized {
		return Samples{Kind: ti.kind, Ints: ints}, nil
	}
	q, err := ti.tileQuantization(row)
	if err != nil {
		return Samples{}, err
	}
	return Samples{Kind: ti.kind, Floats: q.unquantize(ints, row+1)}, nil
}

// tileQuantization overlays per-tile ZSCALE, ZZERO and ZBLANK columns on the
// header defaults.
func (ti *tiledImage) tileQuantization(row int) (quantization, error) {
	q := ti.quant
	var err error
	if ti.scaleCol != nil {
		if q.scale, err = ti.cellFloat(row, ti.scaleCol); err != nil {
			return q, err
		}
	}
	if ti.zeroCol != nil {
		if q.zero, err = ti.cellFloat(row, ti.zeroCol); err != nil {
			return q, err
		}
	}
	if ti.blankCol != nil {
		s, err := ti.table.Samples(row, ti.blankCol)
		if err != nil {
			return q, err
		}
		if !s.Kind.IsInteger() || len(s.Ints) == 0 {
			return q, errors.Wrapf(ErrMalformedTable, "ZBLANK column is %s", s.Kind)
		}
		q.blank, q.hasBlank = s.Ints[0], true
	}
	return q, nil
}

// cellFloat reads a scalar numeric cell at full precision.
func (ti *tiledImage) cellFloat(row int, col *Column) (float64, error) {
	cell := ti.table.Cell(row, col)
	switch {
	case col.IsVariable() || col.Repeat < 1:
	case col.Code == 'D':
		return math.Float64frombits(binary.BigEndian.Uint64(cell)), nil
	case col.Code == 'E':
		return float64(math.Float32frombits(binary.BigEndian.Uint32(cell))), nil
	case col.Kind().IsInteger():
		return float64(decodeBigEndian(col.Kind(), cell[:elementWidth(col.Code)]).Ints[0]), nil
	}
	return 0, errors.Wrapf(ErrMalformedTable, "column %s is not a numeric scalar", col.Name)
}

var gzipReaders sync.Pool

// gunzip inflates at most want bytes of a gzip member.
func gunzip(raw []byte, want int) ([]byte, error) {
	var zr *gzip.Reader
	var err error
	if v := gzipReaders.Get(); v != nil {
		zr = v.(*gzip.Reader)
		err = zr.Reset(bytes.NewReader(raw))
	} else {
		zr, err = gzip.NewReader(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptTile, "gzip: %v", err)
	}
	defer gzipReaders.Put(zr)

	if want/maxDeflateRatio > len(raw) {
		return nil, errors.Wrapf(ErrCorruptTile, "gzip: %d bytes cannot inflate to %d", len(raw), want)
	}

	data, err := io.ReadAll(io.LimitReader(zr, int64(want)))
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptTile, "gzip: %v", err)
	}
	if len(data) < want {
		return nil, errors.Wrapf(ErrCorruptTile, "gzip: %d bytes, want %d", len(data), want)
	}
	return data, nil
}

// unshuffle undoes GZIP_2 byte shuffling: the stream holds the first byte of
// every value, then every second byte, and so on.
func unshuffle(b []byte, size int) []byte {
	if size <= 1 {
		return b
	}
	n := len(b) / size
	out := make([]byte, n*size)
	for j := 0; j < size; j++ {
		plane := b[j*n : (j+1)*n]
		for i, c := range plane {
			out[i*size+j] = c
		}
	}
	return out
}
