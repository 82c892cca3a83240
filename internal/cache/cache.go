package cache

import (
	"context"
	"time"
)

// ProductsTTL bounds how stale a cached product list may get.
const ProductsTTL = 300 * time.Second

// ProductsKey is the single place cache keys are built, so they do not
// drift between the list and by-id read paths.
func ProductsKey(username string) string {
	return "products_" + username
}

// Cache is a plain k/v view of the cache server. Get returns (nil, nil)
// on a miss so callers can fall through to the database.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
