// internal/kv/kv.go
//
// KV is the "local storage" the persistence layer writes to: a flat string
// key → string value space. Implementations live in this package (memory,
// SQLite, Redis); the persist package never knows which one it is given.

package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: not found")

// KV defines the storage interface consumed by persist.Store.
type KV interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put creates or overwrites key.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
