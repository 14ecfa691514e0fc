// Package cache defines the shared tier of the query result cache.
package cache

import (
	"context"
	"time"
)

// Interface is a remote byte store shared between service replicas.
type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	PurgePrefix(ctx context.Context, prefix string) (int, error)
}
