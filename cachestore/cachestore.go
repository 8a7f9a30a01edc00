// Short-lived cache of string values (usually JSON), keyed by namespace and key.
//
// The engine keeps room administrator rosters here so that every guarded action does not hit the transport.
package cachestore

import (
	"context"
)

type CacheStore interface {
	// Returns "" on a miss.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
