// Package fits decodes tile-compressed images out of FITS files.
//
// A FITS file is a sequence of header/data units (HDUs). Each HDU starts
// with a header of 80-byte ASCII cards, padded to a 2880-byte block, and is
// followed by a data block whose length follows from the header and which
// is padded to the same block size:
//
//	+-----------------------+  offset 0
//	| SIMPLE  =  T          |  primary header, cards until END
//	| ...                   |
//	| END                   |
//	+-----------------------+  block aligned
//	| primary data (often 0)|
//	+-----------------------+
//	| XTENSION= 'BINTABLE'  |  extension header
//	| ZIMAGE  =  T          |
//	| ZNAXIS1 = 2400        |
//	| ...                   |
//	+-----------------------+
//	| rows | heap           |  one row per compressed tile
//	+-----------------------+
//
// # Decoding
//
// Decode walks the HDUs with a Scanner, skips everything that is not a
// binary table, and decodes the first one it finds:
//
//	img, err := fits.Decode(buf)
//	if err != nil {
//	    return err
//	}
//	if err := img.Validate(); err != nil {
//	    return err // pixel count disagrees with ZNAXIS1*ZNAXIS2
//	}
//
// Compressed tables may use RICE_1, GZIP_1, GZIP_2 or NOCOMPRESS. Floating
// point images quantized with NO_DITHER, SUBTRACTIVE_DITHER_1 or
// SUBTRACTIVE_DITHER_2 are restored with ZSCALE/ZZERO; ZBLANK pixels
// become NaN. PLIO_1 and HCOMPRESS_1 are rejected with
// ErrUnsupportedCompression.
//
// # Errors
//
// Every failure is returned as a value wrapping one of the package's
// sentinel errors, so callers can match with errors.Is:
//   - ErrTruncatedHeader: no END card before the buffer ends
//   - ErrTruncatedData: the data block runs past the buffer
//   - ErrHeaderKeyNotFound, ErrHeaderTypeMismatch: required keyword problems
//   - ErrUnsupportedDataType: decoded samples were not floating point
//   - ErrNoImageHDU: no binary table in the file
//
// Tile geometry comes from header cards, so it is checked before anything
// is allocated. An image or a single tile larger than
// DecoderConfig.MaxPixels (DefaultMaxPixels when zero) is ErrMalformedTable,
// and a tile whose compressed bytes cannot hold its pixel count is
// ErrCorruptTile.
//
// # Thread Safety
//
// Decoding reads the input buffer and allocates its result; it keeps no
// shared state. Decoder values may be used from many goroutines at once.
// Decoding is CPU bound and cannot be interrupted, so servers should run it
// on a bounded worker pool.
package fits
