package codec

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FuzzDecodeArbitraryBytes feeds raw cache values to Decode. Anything that
// does not hold its declared sizes must fail with ErrShortRecord.
func FuzzDecodeArbitraryBytes(f *testing.F) {
	codec := NewRecordCodec()
	valid, err := codec.EncodeAt([]byte("frame/42"), []byte(`{"frameId":42}`), time.Unix(1700000000, 0))
	require.NoError(f, err)

	f.Add([]byte{})
	f.Add(make([]byte, headerSize-1))
	f.Add(make([]byte, headerSize))
	f.Add(valid)
	f.Add(valid[:len(valid)-1])
	huge := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(huge[4:], 0xffffffff)
	binary.LittleEndian.PutUint32(huge[8:], 0xffffffff)
	f.Add(huge)

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := codec.Decode(data)
		if err != nil {
			assert.True(t, errors.Is(err, ErrShortRecord), "got %v", err)
			return
		}
		assert.Equal(t, int(r.KeySize), len(r.Key))
		assert.Equal(t, int(r.ValueSize), len(r.Value))
		assert.LessOrEqual(t, r.Size(), len(data))
		if err := r.Validate(); err != nil {
			assert.True(t, errors.Is(err, ErrChecksum), "got %v", err)
		}
	})
}

// FuzzEncodeAtRoundTrip checks that the write time survives encoding to
// the nanosecond and that any flipped byte is caught.
func FuzzEncodeAtRoundTrip(f *testing.F) {
	codec := NewRecordCodec()
	f.Add([]byte("frame/1"), []byte(`{"width":2400}`), int64(1700000000123456789), uint(0))
	f.Add([]byte{}, []byte{}, int64(0), uint(3))
	f.Add([]byte("k"), []byte{0xff, 0x00}, int64(-1), uint(21))
	f.Add([]byte("frame/4294967295/0123456789abcdef"), []byte("v"), int64(1<<62), uint(12))

	f.Fuzz(func(t *testing.T, key, value []byte, nanos int64, flip uint) {
		at := time.Unix(0, nanos)
		encoded, err := codec.EncodeAt(key, value, at)
		require.NoError(t, err)
		require.Len(t, encoded, headerSize+len(key)+len(value))

		r, err := codec.Decode(encoded)
		require.NoError(t, err)
		require.NoError(t, r.Validate())
		assert.Equal(t, nanos, r.Time().UnixNano())
		assert.True(t, r.Time().Equal(at))
		assert.Equal(t, string(key), string(r.Key))
		assert.Equal(t, string(value), string(r.Value))

		corrupted := append([]byte(nil), encoded...)
		corrupted[int(flip%uint(len(corrupted)))] ^= 0xff
		r, err = codec.Decode(corrupted)
		if err != nil {
			assert.True(t, errors.Is(err, ErrShortRecord), "got %v", err)
			return
		}
		assert.True(t, errors.Is(r.Validate(), ErrChecksum), "flipped byte %d not detected", flip%uint(len(corrupted)))
	})
}
