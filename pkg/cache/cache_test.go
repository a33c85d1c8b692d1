package cache

import (
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open("cache", Options{TTL: ttl, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t, time.Hour)

	_, ok, err := s.Get("frame:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("frame:1", []byte(`{"width":10}`)))
	got, ok, err := s.Get("frame:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"width":10}`), got)

	require.NoError(t, s.Put("frame:1", []byte(`{"width":20}`)))
	got, _, _ = s.Get("frame:1")
	assert.Equal(t, []byte(`{"width":20}`), got)

	require.NoError(t, s.Delete("frame:1"))
	_, ok, err = s.Get("frame:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s := openTestStore(t, time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put("frame:2", []byte("summary")))

	now = now.Add(59 * time.Second)
	_, ok, err := s.Get("frame:2")
	require.NoError(t, err)
	assert.True(t, ok, "entry still fresh")

	now = now.Add(2 * time.Second)
	_, ok, err = s.Get("frame:2")
	require.NoError(t, err)
	assert.False(t, ok, "entry expired")

	_, closer, err := s.db.Get([]byte("frame:2"))
	if err == nil {
		closer.Close()
	}
	assert.ErrorIs(t, err, pebble.ErrNotFound, "expired entry is deleted")
}

func TestStoreNoTTL(t *testing.T) {
	s := openTestStore(t, 0)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put("frame:3", []byte("summary")))

	now = now.AddDate(5, 0, 0)
	_, ok, err := s.Get("frame:3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreDropsCorruptEntries(t *testing.T) {
	s := openTestStore(t, time.Hour)

	require.NoError(t, s.db.Set([]byte("frame:4"), []byte("garbage"), pebble.NoSync))
	_, ok, err := s.Get("frame:4")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("frame:5", []byte("summary")))
	raw, closer, err := s.db.Get([]byte("frame:5"))
	require.NoError(t, err)
	damaged := append([]byte(nil), raw...)
	closer.Close()
	damaged[len(damaged)-1] ^= 0xFF
	require.NoError(t, s.db.Set([]byte("frame:5"), damaged, pebble.NoSync))

	_, ok, err = s.Get("frame:5")
	require.NoError(t, err)
	assert.False(t, ok)

	// a valid record stored under the wrong key
	require.NoError(t, s.Put("frame:6", []byte("summary")))
	raw, closer, err = s.db.Get([]byte("frame:6"))
	require.NoError(t, err)
	moved := append([]byte(nil), raw...)
	closer.Close()
	require.NoError(t, s.db.Set([]byte("frame:7"), moved, pebble.NoSync))
	_, ok, err = s.Get("frame:7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	var c Nop
	require.NoError(t, c.Put("frame:1", []byte("x")))
	_, ok, err := c.Get("frame:1")
	require.NoError(t, err)
	assert.False(t, ok)
}
