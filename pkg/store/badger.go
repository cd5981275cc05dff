package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/skylens/aqcast/pkg/types"
)

// Config holds document store configuration.
type Config struct {
	Path             string
	CompressionLevel int
	MaxOpenFiles     int
}

// DefaultConfig returns default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
		MaxOpenFiles:     1000,
	}
}

// badgerStore implements DocumentStore using BadgerDB.
type badgerStore struct {
	cfg   *Config
	db    *badger.DB
	codec *Codec
}

// NewBadgerStore opens a BadgerDB-backed document store.
func NewBadgerStore(cfg *Config) (DocumentStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &badgerStore{
		cfg:   cfg,
		db:    db,
		codec: codec,
	}, nil
}

// Get implements DocumentStore.Get.
func (s *badgerStore) Get(ctx context.Context, collection, key string) (*types.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(collection, key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			payload = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var sample types.RawSample
	if err := s.codec.Decode(payload, &sample); err != nil {
		return nil, err
	}

	return &sample, nil
}

// Put implements DocumentStore.Put.
func (s *badgerStore) Put(ctx context.Context, collection, key string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := s.codec.Encode(doc)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(collection, key), payload)
	})
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	return nil
}

// Close implements DocumentStore.Close.
func (s *badgerStore) Close() error {
	if s.codec != nil {
		s.codec.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// documentKey generates the storage key for a document.
func documentKey(collection, key string) []byte {
	return []byte(collection + "/" + key)
}
