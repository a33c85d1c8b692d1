package fits

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// HDUKind discriminates the record types a FITS file can hold.
type HDUKind uint8

const (
	KindUnknown HDUKind = iota
	KindPrimary
	KindImage
	KindASCIITable
	KindBinaryTable
)

func (k HDUKind) String() string {
	switch k {
	case KindPrimary:
		return "PRIMARY"
	case KindImage:
		return "IMAGE"
	case KindASCIITable:
		return "TABLE"
	case KindBinaryTable:
		return "BINTABLE"
	default:
		return "UNKNOWN"
	}
}

// HDU describes one header/data unit. Data aliases the scanned buffer.
//
//	Offset      start of the header block
//	DataOffset  start of the data block (header end, block aligned)
//	DataLen     declared data length, excluding block padding
type HDU struct {
	Index      int
	Kind       HDUKind
	Header     *Header
	Offset     int
	DataOffset int
	DataLen    int
	data       []byte
}

// Data returns the unpadded data block.
func (h *HDU) Data() []byte {
	return h.data
}

// Scanner walks the HDUs of a fully buffered FITS file front to back.
//
//	s := fits.NewScanner(b)
//	for s.Next() {
//	    hdu := s.HDU()
//	    ...
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	buf   []byte
	off   int
	index int
	hdu   *HDU
	err   error
	done  bool
}

// NewScanner returns a scanner positioned at the primary HDU of b.
func NewScanner(b []byte) *Scanner {
	return &Scanner{buf: b}
}

// Reset rewinds the scanner to the primary HDU.
func (s *Scanner) Reset() {
	s.off, s.index, s.hdu, s.err, s.done = 0, 0, nil, nil, false
}

// HDU returns the descriptor produced by the last successful Next.
func (s *Scanner) HDU() *HDU {
	return s.hdu
}

// Err returns the first error encountered. Reaching the end of the file is
// not an error.
func (s *Scanner) Err() error {
	return s.err
}

// Next advances to the following HDU. It returns false at the end of the file
// or on error.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	s.hdu = nil
	if s.index > 0 && s.atEnd() {
		s.done = true
		return false
	}
	if len(s.buf) == 0 {
		return s.fail(errors.Wrap(ErrTruncatedHeader, "empty buffer"))
	}

	hdr, dataOff, err := ParseHeader(s.buf[s.off:])
	if err != nil {
		return s.fail(errors.Wrapf(err, "hdu %d at offset %d", s.index, s.off))
	}
	kind, err := classify(hdr, s.index)
	if err != nil {
		return s.fail(errors.Wrapf(err, "hdu %d at offset %d", s.index, s.off))
	}
	n, err := dataLength(hdr)
	if err != nil {
		return s.fail(errors.Wrapf(err, "hdu %d at offset %d", s.index, s.off))
	}

	start := s.off + dataOff
	data, ok := slice(s.buf, start, n)
	if !ok {
		return s.fail(errors.Wrapf(ErrTruncatedData, "hdu %d: %d data bytes declared, %d remain", s.index, n, len(s.buf)-start))
	}

	s.hdu = &HDU{
		Index:      s.index,
		Kind:       kind,
		Header:     hdr,
		Offset:     s.off,
		DataOffset: start,
		DataLen:    n,
		data:       data,
	}
	// The final data block is sometimes written without its padding.
	s.off = min(start+AlignBlock(n), len(s.buf))
	s.index++
	return true
}

func (s *Scanner) fail(err error) bool {
	s.err = err
	s.done = true
	return false
}

// atEnd reports whether the remaining bytes can hold no further HDU: nothing
// left, less than a block, or zero fill.
func (s *Scanner) atEnd() bool {
	rest := s.buf[s.off:]
	if len(rest) < BlockSize {
		return true
	}
	for _, c := range rest {
		if c != 0 {
			return false
		}
	}
	return true
}

func classify(h *Header, index int) (HDUKind, error) {
	first := h.values.Front()
	if index == 0 {
		if first == nil || first.Key != keySimple {
			return KindUnknown, errors.Wrap(ErrMalformedHeader, "primary header must start with SIMPLE")
		}
		return KindPrimary, nil
	}
	if first == nil || first.Key != keyXtension {
		return KindUnknown, errors.Wrap(ErrMalformedHeader, "extension header must start with XTENSION")
	}
	xt, err := h.Text(keyXtension)
	if err != nil {
		return KindUnknown, err
	}
	switch strings.TrimSpace(xt) {
	case "IMAGE":
		return KindImage, nil
	case "TABLE":
		return KindASCIITable, nil
	case "BINTABLE", "A3DTABLE":
		return KindBinaryTable, nil
	default:
		return KindUnknown, nil
	}
}

// dataLength computes |BITPIX|/8 * GCOUNT * (PCOUNT + NAXIS1*...*NAXISn).
func dataLength(h *Header) (int, error) {
	bitpix, err := h.Int(keyBitpix)
	if err != nil {
		return 0, err
	}
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return 0, errors.Wrapf(ErrMalformedHeader, "BITPIX %d", bitpix)
	}
	naxis, err := h.Int(keyNaxis)
	if err != nil {
		return 0, err
	}
	if naxis < 0 || naxis > 999 {
		return 0, errors.Wrapf(ErrMalformedHeader, "NAXIS %d", naxis)
	}
	if naxis == 0 {
		return 0, nil
	}
	groups, err := h.BoolOr(keyGroups, false)
	if err != nil {
		return 0, err
	}

	elems := 1
	for i := 1; i <= int(naxis); i++ {
		n, err := h.Int(keyNaxis + strconv.Itoa(i))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, errors.Wrapf(ErrMalformedHeader, "NAXIS%d %d", i, n)
		}
		if i == 1 && groups && n == 0 {
			continue
		}
		var ok bool
		if elems, ok = mulSafe(elems, int(n)); !ok {
			return 0, errors.Wrap(ErrMalformedHeader, "axis product overflows")
		}
	}

	pcount, err := h.IntOr(keyPcount, 0)
	if err != nil {
		return 0, err
	}
	gcount, err := h.IntOr(keyGcount, 1)
	if err != nil {
		return 0, err
	}
	if pcount < 0 || gcount < 0 {
		return 0, errors.Wrapf(ErrMalformedHeader, "PCOUNT %d GCOUNT %d", pcount, gcount)
	}

	total, ok := addSafe(elems, int(pcount))
	if ok {
		total, ok = mulSafe(total, int(gcount))
	}
	if ok {
		total, ok = mulSafe(total, int(abs(bitpix)/8))
	}
	if !ok {
		return 0, errors.Wrap(ErrMalformedHeader, "data length overflows")
	}
	return total, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
