package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewRecordCodec()

	testCases := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{
			name:  "frame summary",
			key:   []byte("frame:12345"),
			value: []byte(`{"frame_id":12345,"width":4096,"height":4096}`),
		},
		{
			name:  "empty key",
			key:   []byte(""),
			value: []byte("some value"),
		},
		{
			name:  "empty value",
			key:   []byte("frame:1"),
			value: []byte(""),
		},
		{
			name:  "both empty",
			key:   []byte(""),
			value: []byte(""),
		},
		{
			name:  "binary data",
			key:   []byte{0x00, 0x01, 0x02, 0x03},
			value: []byte{0xFF, 0xFE, 0xFD, 0xFC},
		},
		{
			name:  "large value",
			key:   []byte("frame:2"),
			value: bytes.Repeat([]byte("v"), 10240),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := time.Now()
			encoded, err := codec.Encode(tc.key, tc.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if err := record.Validate(); err != nil {
				t.Fatalf("Record validation failed: %v", err)
			}

			if !bytes.Equal(record.Key, tc.key) {
				t.Errorf("Key mismatch: got %v, want %v", record.Key, tc.key)
			}
			if !bytes.Equal(record.Value, tc.value) {
				t.Errorf("Value mismatch: got %v, want %v", record.Value, tc.value)
			}
			if record.KeySize != uint32(len(tc.key)) {
				t.Errorf("KeySize mismatch: got %d, want %d", record.KeySize, len(tc.key))
			}
			if record.ValueSize != uint32(len(tc.value)) {
				t.Errorf("ValueSize mismatch: got %d, want %d", record.ValueSize, len(tc.value))
			}
			if record.Time().Before(before) || record.Time().After(time.Now()) {
				t.Errorf("Timestamp outside encode window: %v", record.Time())
			}
		})
	}
}

func TestRecordCodec_EncodeAt(t *testing.T) {
	codec := NewRecordCodec()
	at := time.Date(2024, 6, 22, 8, 0, 0, 0, time.UTC)

	encoded, err := codec.EncodeAt([]byte("frame:7"), []byte("payload"), at)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}
	if len(encoded) != 20+7+7 {
		t.Errorf("encoded length: got %d, want %d", len(encoded), 34)
	}

	record, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !record.Time().Equal(at) {
		t.Errorf("Time: got %v, want %v", record.Time(), at)
	}
}

func TestRecordCodec_CRCValidation(t *testing.T) {
	codec := NewRecordCodec()
	key := []byte("test key")
	value := []byte("test value")

	corruptions := []struct {
		name   string
		offset int
	}{
		{"crc field", 0},
		{"timestamp", 12},
		{"key data", 20},
		{"value data", 20 + len(key)},
	}

	for _, c := range corruptions {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := codec.Encode(key, value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			encoded[c.offset] ^= 0xFF

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			err = record.Validate()
			if !errors.Is(err, ErrChecksum) {
				t.Errorf("Expected ErrChecksum, got %v", err)
			}
		})
	}
}

func TestRecordCodec_DecodeErrors(t *testing.T) {
	codec := NewRecordCodec()

	t.Run("short header", func(t *testing.T) {
		_, err := codec.Decode([]byte{0x01, 0x02, 0x03})
		if !errors.Is(err, ErrShortRecord) {
			t.Errorf("Expected ErrShortRecord, got %v", err)
		}
	})

	t.Run("sizes exceed buffer", func(t *testing.T) {
		encoded, err := codec.Encode([]byte("key"), []byte("value"))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		_, err = codec.Decode(encoded[:len(encoded)-1])
		if !errors.Is(err, ErrShortRecord) {
			t.Errorf("Expected ErrShortRecord, got %v", err)
		}
	})

	t.Run("huge declared sizes", func(t *testing.T) {
		data := make([]byte, 20)
		for i := 4; i < 12; i++ {
			data[i] = 0xFF
		}
		_, err := codec.Decode(data)
		if !errors.Is(err, ErrShortRecord) {
			t.Errorf("Expected ErrShortRecord, got %v", err)
		}
	})
}

func TestRecord_Size(t *testing.T) {
	record, err := NewRecord([]byte("key"), []byte("value"), time.Now())
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if record.Size() != 20+3+5 {
		t.Errorf("Size: got %d, want %d", record.Size(), 28)
	}
}
