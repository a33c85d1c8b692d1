package fits

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Column describes one field of a binary table row, from TFORMn/TTYPEn.
//
//	TFORMn = 'rT'      fixed cell of r values of type T
//	TFORMn = 'rPT(m)'  32-bit descriptor into the heap
//	TFORMn = 'rQT(m)'  64-bit descriptor into the heap
type Column struct {
	Index      int // 1-based field number
	Name       string
	Repeat     int
	Code       byte // element type code (L X B I J K A E D C M)
	Descriptor byte // 'P' or 'Q' for variable-length arrays, else 0
	Offset     int  // byte offset within the row
	Width      int  // bytes occupied within the row
}

// IsVariable reports whether the column stores heap descriptors.
func (c *Column) IsVariable() bool {
	return c.Descriptor != 0
}

// Kind returns the sample kind of the column's elements.
func (c *Column) Kind() SampleKind {
	return kindForCode(c.Code)
}

// Table is a view of a BINTABLE HDU: fixed-width rows followed by a heap.
type Table struct {
	hdu      *HDU
	RowWidth int // NAXIS1
	Rows     int // NAXIS2
	Columns  []Column
	heap     []byte
}

// NewTable reads the column layout of a binary table HDU.
func NewTable(h *HDU) (*Table, error) {
	if h.Kind != KindBinaryTable {
		return nil, errors.Wrapf(ErrMalformedTable, "hdu %d is %s", h.Index, h.Kind)
	}
	hdr := h.Header
	rowWidth, err := hdr.Int(keyNaxis + "1")
	if err != nil {
		return nil, err
	}
	rows, err := hdr.Int(keyNaxis + "2")
	if err != nil {
		return nil, err
	}
	fields, err := hdr.Int(keyTfields)
	if err != nil {
		return nil, err
	}
	if rowWidth < 0 || rows < 0 || fields < 0 || fields > 999 {
		return nil, errors.Wrapf(ErrMalformedTable, "NAXIS1 %d NAXIS2 %d TFIELDS %d", rowWidth, rows, fields)
	}

	t := &Table{hdu: h, RowWidth: int(rowWidth), Rows: int(rows)}
	off := 0
	for i := 1; i <= int(fields); i++ {
		form, err := hdr.Text("TFORM" + strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		col, err := parseTForm(form)
		if err != nil {
			return nil, errors.Wrapf(err, "TFORM%d", i)
		}
		name, err := hdr.TextOr("TTYPE"+strconv.Itoa(i), "")
		if err != nil {
			return nil, err
		}
		col.Index, col.Name, col.Offset = i, strings.TrimSpace(name), off
		off += col.Width
		t.Columns = append(t.Columns, col)
	}
	if off > t.RowWidth {
		return nil, errors.Wrapf(ErrMalformedTable, "columns need %d bytes, NAXIS1 is %d", off, t.RowWidth)
	}

	rowBytes, ok := mulSafe(t.RowWidth, t.Rows)
	if !ok || rowBytes > len(h.data) {
		return nil, errors.Wrapf(ErrTruncatedData, "table rows need %d bytes, have %d", rowBytes, len(h.data))
	}
	theap, err := hdr.IntOr(keyTheap, int64(rowBytes))
	if err != nil {
		return nil, err
	}
	if theap < int64(rowBytes) || theap > int64(len(h.data)) {
		return nil, errors.Wrapf(ErrMalformedTable, "THEAP %d outside data block", theap)
	}
	t.heap = h.data[theap:]
	return t, nil
}

// Column returns the column named name, matched case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the fixed-width bytes of row i.
func (t *Table) Row(i int) []byte {
	off := i * t.RowWidth
	return t.hdu.data[off : off+t.RowWidth]
}

// Cell returns the in-row bytes of col for row i. For variable-length
// columns these are the descriptor bytes.
func (t *Table) Cell(i int, col *Column) []byte {
	return t.Row(i)[col.Offset : col.Offset+col.Width]
}

// HeapArray resolves the descriptor of a variable-length column in row i
// and returns the referenced heap bytes together with the element count.
func (t *Table) HeapArray(i int, col *Column) ([]byte, int, error) {
	if !col.IsVariable() {
		return nil, 0, errors.Wrapf(ErrMalformedTable, "column %d is not variable length", col.Index)
	}
	cell := t.Cell(i, col)
	if col.Repeat == 0 {
		return nil, 0, nil
	}
	var count, offset int64
	if col.Descriptor == 'P' {
		count = int64(int32(binary.BigEndian.Uint32(cell[0:])))
		offset = int64(int32(binary.BigEndian.Uint32(cell[4:])))
	} else {
		count = int64(binary.BigEndian.Uint64(cell[0:]))
		offset = int64(binary.BigEndian.Uint64(cell[8:]))
	}
	if count < 0 || offset < 0 {
		return nil, 0, errors.Wrapf(ErrMalformedTable, "row %d column %d: descriptor (%d, %d)", i, col.Index, count, offset)
	}
	size, ok := mulSafe(int(count), elementWidth(col.Code))
	if col.Code == 'X' {
		size, ok = (int(count)+7)/8, true
	}
	if !ok {
		return nil, 0, errors.Wrapf(ErrMalformedTable, "row %d column %d: array too large", i, col.Index)
	}
	data, ok := slice(t.heap, int(offset), size)
	if !ok {
		return nil, 0, errors.Wrapf(ErrTruncatedData, "row %d column %d: heap range %d+%d beyond %d", i, col.Index, offset, size, len(t.heap))
	}
	return data, int(count), nil
}

// Samples decodes the values of col in row i, following heap descriptors
// for variable-length columns.
func (t *Table) Samples(i int, col *Column) (Samples, error) {
	if col.IsVariable() {
		data, _, err := t.HeapArray(i, col)
		if err != nil {
			return Samples{}, err
		}
		return decodeBigEndian(col.Kind(), data), nil
	}
	return decodeBigEndian(col.Kind(), t.Cell(i, col)), nil
}

func parseTForm(form string) (Column, error) {
	s := strings.TrimSpace(form)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return Column{}, errors.Wrapf(ErrMalformedTable, "repeat count %q", s[:i])
		}
		repeat = n
	}
	if i >= len(s) {
		return Column{}, errors.Wrapf(ErrMalformedTable, "TFORM %q has no type code", form)
	}

	col := Column{Repeat: repeat, Code: s[i]}
	if col.Code == 'P' || col.Code == 'Q' {
		if i+1 >= len(s) {
			return Column{}, errors.Wrapf(ErrMalformedTable, "TFORM %q has no array type", form)
		}
		col.Descriptor, col.Code = col.Code, s[i+1]
		if col.Code == 'P' || col.Code == 'Q' || elementWidth(col.Code) == 0 && col.Code != 'X' {
			return Column{}, errors.Wrapf(ErrMalformedTable, "TFORM %q", form)
		}
		if repeat > 1 {
			return Column{}, errors.Wrapf(ErrMalformedTable, "TFORM %q: descriptor repeat must be 0 or 1", form)
		}
		col.Width = repeat * 8
		if col.Descriptor == 'Q' {
			col.Width = repeat * 16
		}
		return col, nil
	}

	switch {
	case col.Code == 'X':
		col.Width = (repeat + 7) / 8
	case elementWidth(col.Code) > 0:
		col.Width = repeat * elementWidth(col.Code)
	default:
		return Column{}, errors.Wrapf(ErrMalformedTable, "TFORM %q: unknown type code %q", form, col.Code)
	}
	return col, nil
}

// elementWidth is the byte width of one element of a TFORM type code. Bit
// arrays (X) are packed and report 0.
func elementWidth(code byte) int {
	switch code {
	case 'L', 'B', 'A':
		return 1
	case 'I':
		return 2
	case 'J', 'E':
		return 4
	case 'K', 'D', 'C':
		return 8
	case 'M':
		return 16
	default:
		return 0
	}
}

func kindForCode(code byte) SampleKind {
	switch code {
	case 'L':
		return SampleLogical
	case 'X':
		return SampleBit
	case 'A':
		return SampleChar
	case 'B':
		return SampleUint8
	case 'I':
		return SampleInt16
	case 'J':
		return SampleInt32
	case 'K':
		return SampleInt64
	case 'E':
		return SampleFloat32
	case 'D':
		return SampleFloat64
	case 'C':
		return SampleComplex64
	case 'M':
		return SampleComplex128
	default:
		return SampleInvalid
	}
}
