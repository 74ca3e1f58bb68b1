// Package localstore is the client's durable key/value storage. It holds the
// persisted identity and the Local Cache of the last known server record.
package localstore

import "context"

// Store is a small string key/value store. Get reports ok=false for a
// missing key rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
