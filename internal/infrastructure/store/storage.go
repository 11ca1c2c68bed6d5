package store

import "context"

// Storage is the client-side persistence the storefront keeps outside a
// single process run: the session record and the catalog cache entry.
// Values are opaque bytes; callers own the encoding.
type Storage interface {
	// Get returns the value under key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
