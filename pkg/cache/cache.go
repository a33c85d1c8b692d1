// Package cache keeps frame summaries in a local pebble database so repeat
// requests skip the archive download and the decode.
package cache

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/ssargent/fitsthumb/pkg/codec"
)

// Options configures a Store.
type Options struct {
	// TTL is how long an entry stays valid. Zero keeps entries forever.
	TTL time.Duration
	// InMemory keeps the database in memory, for tests and ephemeral runs.
	InMemory bool
	Logger   *slog.Logger
}

// Store is a TTL'd key/value cache. Values are wrapped in codec records so
// damaged or expired entries are detected on read and dropped.
// Store is safe for concurrent use.
type Store struct {
	db     *pebble.DB
	codec  *codec.RecordCodec
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Open opens or creates the cache database at path.
func Open(path string, opts Options) (*Store, error) {
	po := &pebble.Options{}
	if opts.InMemory {
		po.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, errors.Wrapf(err, "open cache at %s", path)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		codec:  codec.NewRecordCodec(),
		ttl:    opts.TTL,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Get returns the value stored under key. Missing, expired and corrupt
// entries all report ok == false; the latter two are deleted.
func (s *Store) Get(key string) ([]byte, bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "cache get %s", key)
	}
	defer closer.Close()

	record, err := s.codec.Decode(data)
	if err == nil {
		err = record.Validate()
	}
	if err == nil && !bytes.Equal(record.Key, []byte(key)) {
		err = errors.Newf("record key %q", record.Key)
	}
	if err != nil {
		s.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		return nil, false, s.Delete(key)
	}
	if s.ttl > 0 && s.now().Sub(record.Time()) > s.ttl {
		s.logger.Debug("cache entry expired", "key", key, "written", record.Time())
		return nil, false, s.Delete(key)
	}

	// data is only valid until closer.Close
	value := make([]byte, len(record.Value))
	copy(value, record.Value)
	return value, true, nil
}

// Put stores value under key, stamped with the current time.
func (s *Store) Put(key string, value []byte) error {
	encoded, err := s.codec.EncodeAt([]byte(key), value, s.now())
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(key), encoded, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "cache put %s", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.NoSync); err != nil {
		return errors.Wrapf(err, "cache delete %s", key)
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Nop is a cache that stores nothing. It stands in when caching is disabled.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(string, []byte) error         { return nil }
