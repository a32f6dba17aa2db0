package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltBucket  = "diggit"
	boltTimeout = 5 * time.Second
	boltPerm    = 0o600
	boltDirPerm = 0o755
)

// BoltStore is a [Store] persisted in a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	err := os.MkdirAll(filepath.Dir(path), boltDirPerm)
	if err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := bolt.Open(path, boltPerm, &bolt.Options{Timeout: boltTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}

	return newBoltStore(db)
}

// newBoltStore ensures the bucket exists, closing db when it cannot.
func newBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists([]byte(boltBucket))

		return bucketErr
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create bolt bucket: %w", err), db.Close())
	}

	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	err := ctx.Err()
	if err != nil {
		return nil, false, err
	}

	var value []byte

	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(boltBucket)).Get([]byte(key))
		if data != nil {
			// Bolt memory is only valid for the life of the transaction.
			value = bytes.Clone(data)
		}

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt view: %w", err)
	}

	return value, value != nil, nil
}

// Put implements Store.
func (s *BoltStore) Put(ctx context.Context, key string, value []byte) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bolt update: %w", err)
	}

	return nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("close bolt cache: %w", err)
	}

	return nil
}
