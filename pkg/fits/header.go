package fits

import (
	"github.com/cockroachdb/errors"
	"github.com/elliotchance/orderedmap/v3"
)

// Header is the ordered keyword/value content of one header block.
// Repeated keywords keep their first position and their last value.
type Header struct {
	values     *orderedmap.OrderedMap[string, Value]
	commentary []Commentary
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: orderedmap.NewOrderedMap[string, Value]()}
}

// ParseHeader parses the header block at the start of b. It returns the
// header and the offset of the first byte after the block padding, which is
// where the HDU's data block begins.
func ParseHeader(b []byte) (*Header, int, error) {
	h := NewHeader()
	for off := 0; off+CardSize <= len(b); off += CardSize {
		raw := b[off : off+CardSize]
		c := parseCard(raw)
		if c.keyword == keyEnd && !c.hasValue {
			end := AlignBlock(off + CardSize)
			if end > len(b) {
				return nil, 0, errors.Wrapf(ErrTruncatedHeader, "padding after END: need %d bytes, have %d", end, len(b))
			}
			return h, end, nil
		}
		if !c.hasValue {
			h.commentary = append(h.commentary, Commentary{Keyword: c.keyword, Text: c.text})
			continue
		}
		h.Set(c.keyword, c.value)
	}
	return nil, 0, errors.Wrapf(ErrTruncatedHeader, "no END card in %d bytes", len(b))
}

// Set stores v under key.
func (h *Header) Set(key string, v Value) {
	h.values.Set(key, v)
}

// Get returns the raw value stored under key.
func (h *Header) Get(key string) (Value, bool) {
	return h.values.Get(key)
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	_, ok := h.values.Get(key)
	return ok
}

// Len returns the number of distinct keywords.
func (h *Header) Len() int {
	return h.values.Len()
}

// Keys returns the keywords in header order.
func (h *Header) Keys() []string {
	keys := make([]string, 0, h.values.Len())
	for el := h.values.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Commentary returns the COMMENT, HISTORY and blank-keyword cards in order.
func (h *Header) Commentary() []Commentary {
	return h.commentary
}

func (h *Header) lookup(key string, want ValueKind) (Value, error) {
	v, ok := h.values.Get(key)
	if !ok {
		return Value{}, errors.Wrapf(ErrHeaderKeyNotFound, "%s", key)
	}
	if v.Kind != want && !(want == ValueFloat && v.Kind == ValueInt) {
		return Value{}, errors.Wrapf(ErrHeaderTypeMismatch, "%s: want %s, have %s", key, want, v.Kind)
	}
	return v, nil
}

// Int returns the required integer value of key.
func (h *Header) Int(key string) (int64, error) {
	v, err := h.lookup(key, ValueInt)
	if err != nil {
		return 0, err
	}
	return v.Int, nil
}

// Float returns the required numeric value of key. Integer values are
// accepted and converted.
func (h *Header) Float(key string) (float64, error) {
	v, err := h.lookup(key, ValueFloat)
	if err != nil {
		return 0, err
	}
	if v.Kind == ValueInt {
		return float64(v.Int), nil
	}
	return v.Float, nil
}

// Text returns the required string value of key.
func (h *Header) Text(key string) (string, error) {
	v, err := h.lookup(key, ValueString)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

// Bool returns the required logical value of key.
func (h *Header) Bool(key string) (bool, error) {
	v, err := h.lookup(key, ValueLogical)
	if err != nil {
		return false, err
	}
	return v.Bool, nil
}

// IntOr is Int with a default for a missing keyword. A present keyword of
// the wrong type is still an error.
func (h *Header) IntOr(key string, def int64) (int64, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Int(key)
}

// FloatOr is Float with a default for a missing keyword.
func (h *Header) FloatOr(key string, def float64) (float64, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Float(key)
}

// TextOr is Text with a default for a missing keyword.
func (h *Header) TextOr(key, def string) (string, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Text(key)
}

// BoolOr is Bool with a default for a missing keyword.
func (h *Header) BoolOr(key string, def bool) (bool, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Bool(key)
}
