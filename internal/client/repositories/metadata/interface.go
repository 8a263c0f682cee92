// Package metadata is a small key/value repository on top of the local
// SQLite database. The durable session store keeps its two keys here.
package metadata

import (
	"context"
)

// Repository stores opaque values by key.
//
// Get returns common.ErrNotFound when the key is absent. Delete is
// idempotent: deleting a missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
