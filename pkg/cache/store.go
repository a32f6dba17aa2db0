// Package cache provides the key-value store backing changeset and itemset
// caches, typed load/save helpers over it, and an in-process LRU.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/directional-star/diggit/pkg/persist"
)

// Backend names accepted by [Open].
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by [Open] for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Store is a byte-oriented key-value store. A missing key is reported as
// (nil, false, nil), never as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns a store for the named backend. path is only used by the bolt backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendBolt:
		return NewBoltStore(path)
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// ChangesetsKey is the cache key of the changeset corpus for a repository.
func ChangesetsKey(ghPath string) string {
	return ghPath + "/changesets"
}

// ItemsetsKey is the cache key of the mined itemsets for a repository.
func ItemsetsKey(ghPath string) string {
	return ghPath + "/itemsets"
}

func valueCodec() persist.Codec {
	return persist.NewLZ4Codec(persist.NewGobCodec())
}

// Load decodes the value stored under key into out. It reports false when the
// key is absent, leaving out untouched.
func Load[T any](ctx context.Context, store Store, key string, out *T) (bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if !ok {
		return false, nil
	}

	err = persist.Unmarshal(valueCodec(), data, out)
	if err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}

	return true, nil
}

// Save encodes value and stores it under key, replacing any previous value.
func Save[T any](ctx context.Context, store Store, key string, value T) error {
	data, err := persist.Marshal(valueCodec(), value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	err = store.Put(ctx, key, data)
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}

	return nil
}
