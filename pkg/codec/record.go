package codec

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

const headerSize = 20

var (
	// ErrShortRecord indicates the buffer cannot hold the declared record.
	ErrShortRecord = errors.New("codec: record truncated")
	// ErrChecksum indicates the stored CRC32 does not match the contents.
	ErrChecksum = errors.New("codec: checksum mismatch")
	// ErrTooLarge indicates a key or value does not fit a 32-bit size field.
	ErrTooLarge = errors.New("codec: key or value too large")
)

// Record is one cache entry with the metadata needed to verify and age it
type Record struct {
	CRC32     uint32 // CRC32 checksum for integrity
	KeySize   uint32 // Size of the key in bytes
	ValueSize uint32 // Size of the value in bytes
	Timestamp uint64 // Unix time the entry was written, in nanoseconds
	Key       []byte // Key data
	Value     []byte // Value data
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode serializes a key-value pair stamped with the current time.
// Format: [CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
func (c *RecordCodec) Encode(key, value []byte) ([]byte, error) {
	return c.EncodeAt(key, value, time.Now())
}

// EncodeAt serializes a key-value pair stamped with the given time.
func (c *RecordCodec) EncodeAt(key, value []byte, at time.Time) ([]byte, error) {
	r, err := NewRecord(key, value, at)
	if err != nil {
		return nil, err
	}
	r.CRC32 = r.calculateCRC32()

	buf := make([]byte, r.Size())
	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], r.KeySize)
	binary.LittleEndian.PutUint32(buf[8:], r.ValueSize)
	binary.LittleEndian.PutUint64(buf[12:], r.Timestamp)
	copy(buf[headerSize:], r.Key)
	copy(buf[headerSize+int(r.KeySize):], r.Value)

	return buf, nil
}

// Decode deserializes a binary record. Key and Value alias data. The
// checksum is not verified; call Validate for that.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	if len(data) < headerSize {
		return nil, errors.Wrapf(ErrShortRecord, "%d bytes, header needs %d", len(data), headerSize)
	}

	r := &Record{}
	r.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	r.KeySize = binary.LittleEndian.Uint32(data[4:8])
	r.ValueSize = binary.LittleEndian.Uint32(data[8:12])
	r.Timestamp = binary.LittleEndian.Uint64(data[12:20])

	need := uint64(headerSize) + uint64(r.KeySize) + uint64(r.ValueSize)
	if uint64(len(data)) < need {
		return nil, errors.Wrapf(ErrShortRecord, "%d bytes, sizes need %d", len(data), need)
	}

	keyEnd := headerSize + int(r.KeySize)
	r.Key = data[headerSize:keyEnd]
	r.Value = data[keyEnd : keyEnd+int(r.ValueSize)]

	return r, nil
}

// Validate checks the integrity of a record using CRC32
func (r *Record) Validate() error {
	if sum := r.calculateCRC32(); r.CRC32 != sum {
		return errors.Wrapf(ErrChecksum, "stored %08x, computed %08x", r.CRC32, sum)
	}
	return nil
}

// Time returns the write time of the record.
func (r *Record) Time() time.Time {
	return time.Unix(0, int64(r.Timestamp))
}

// Size returns the total size of the record when encoded
func (r *Record) Size() int {
	return headerSize + len(r.Key) + len(r.Value)
}

// NewRecord creates a record for key and value written at the given time.
func NewRecord(key, value []byte, at time.Time) (*Record, error) {
	if uint64(len(key)) > math.MaxUint32 || uint64(len(value)) > math.MaxUint32 {
		return nil, errors.Wrapf(ErrTooLarge, "key %d bytes, value %d bytes", len(key), len(value))
	}
	return &Record{
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Timestamp: uint64(at.UnixNano()),
		Key:       key,
		Value:     value,
	}, nil
}

// calculateCRC32 covers every field except the CRC itself:
// KeySize + ValueSize + Timestamp + Key + Value
func (r *Record) calculateCRC32() uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], r.KeySize)
	binary.LittleEndian.PutUint32(hdr[4:], r.ValueSize)
	binary.LittleEndian.PutUint64(hdr[8:], r.Timestamp)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(hdr[:])
	_, _ = crc.Write(r.Key)
	_, _ = crc.Write(r.Value)
	return crc.Sum32()
}
