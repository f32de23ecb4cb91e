package embedding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

// DiskCache persists embeddings in a Badger database so re-ingesting unchanged chunks does not
// call the provider again.
type DiskCache struct {
	db     *badger.DB
	logger *zap.Logger
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...interface{})   { l.s.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...interface{}) { l.s.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...interface{})    { l.s.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...interface{})   { l.s.Debugf(msg, items...) }

// NewDiskCache opens (or creates) the cache directory at path.
func NewDiskCache(path string, opts ...Option) (*DiskCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	s := applyOptions(opts)
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bopts := badger.DefaultOptions(path)
	bopts.Logger = &badgerLogger{s: logger.Named("badger").Sugar()}
	bopts.Compression = options.None
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &DiskCache{db: db, logger: logger}, nil
}

// Get returns the cached embedding for key. Read errors count as misses.
func (c *DiskCache) Get(key string) ([]float32, bool) {
	var out []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return out, len(out) > 0
}

// Set stores value under key. Write errors are logged and dropped.
func (c *DiskCache) Set(key string, value []float32) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeVector(value))
	})
	if err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
}

// Close closes the database.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
