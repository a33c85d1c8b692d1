// Package codec provides the binary record format used by the frame
// summary cache.
//
// # Record Format
//
// Every cache value is stored as one record:
//
//	[CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// Fields:
//   - CRC32: IEEE checksum over every following field (little-endian)
//   - KeySize: key length in bytes (little-endian)
//   - ValueSize: value length in bytes (little-endian)
//   - Timestamp: Unix write time in nanoseconds (little-endian)
//   - Key: the cache key, repeated so a record can be checked against the
//     key it was read under
//   - Value: the cached payload
//
// The cache uses Timestamp to expire entries and CRC32 to drop entries that
// were damaged on disk.
//
// # Usage
//
//	c := codec.NewRecordCodec()
//	encoded, err := c.Encode([]byte("frame:42"), payload)
//	...
//	record, err := c.Decode(encoded)
//	if err != nil {
//	    return err
//	}
//	if err := record.Validate(); err != nil {
//	    return err // corrupted
//	}
//
// Decode errors wrap ErrShortRecord; Validate errors wrap ErrChecksum. Both
// can be matched with errors.Is.
//
// # Thread Safety
//
// RecordCodec holds no state and is safe for concurrent use. A decoded
// Record aliases the input buffer.
package codec
