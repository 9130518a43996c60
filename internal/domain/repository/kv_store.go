package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key has no value in the local store.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the local persistent key-value store backing the outbound queue
// and the serialized directory cache. Values must survive process restart.
type KVStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the value under key. Removing a missing key is a no-op.
	Remove(ctx context.Context, key string) error
}
