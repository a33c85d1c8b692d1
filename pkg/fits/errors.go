package fits

import "github.com/cockroachdb/errors"

var (
	// ErrTruncatedHeader indicates a header block ended without an END card.
	ErrTruncatedHeader = errors.New("fits: truncated header")
	// ErrTruncatedData indicates the declared data block runs past the buffer.
	ErrTruncatedData = errors.New("fits: truncated data")
	// ErrHeaderKeyNotFound indicates a required header keyword is absent.
	ErrHeaderKeyNotFound = errors.New("fits: header keyword not found")
	// ErrHeaderTypeMismatch indicates a keyword holds a value of the wrong type.
	ErrHeaderTypeMismatch = errors.New("fits: header value type mismatch")
	// ErrUnsupportedDataType indicates decoded samples were not floating point.
	ErrUnsupportedDataType = errors.New("fits: unsupported data type")
	// ErrNoImageHDU indicates the file holds no binary table HDU to decode.
	ErrNoImageHDU = errors.New("fits: no image HDU found")

	// ErrMalformedHeader indicates a header is structurally invalid, e.g. the
	// first card is neither SIMPLE nor XTENSION.
	ErrMalformedHeader = errors.New("fits: malformed header")
	// ErrMalformedTable indicates inconsistent binary table layout keywords.
	ErrMalformedTable = errors.New("fits: malformed binary table")
	// ErrUnsupportedCompression indicates a ZCMPTYPE this package cannot decode.
	ErrUnsupportedCompression = errors.New("fits: unsupported compression")
	// ErrCorruptTile indicates a compressed tile could not be decompressed.
	ErrCorruptTile = errors.New("fits: corrupt tile")
	// ErrShapeMismatch indicates Width*Height disagrees with the pixel count.
	ErrShapeMismatch = errors.New("fits: image shape mismatch")
)

// IsFormatError reports whether err originates from malformed or unsupported
// input rather than from a caller mistake.
func IsFormatError(err error) bool {
	for _, target := range []error{
		ErrTruncatedHeader, ErrTruncatedData, ErrHeaderKeyNotFound,
		ErrHeaderTypeMismatch, ErrUnsupportedDataType, ErrNoImageHDU,
		ErrMalformedHeader, ErrMalformedTable, ErrUnsupportedCompression,
		ErrCorruptTile, ErrShapeMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
