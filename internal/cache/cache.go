// Package cache provides a small cache-aside port used for computed
// statements. A nil Cache is a valid configuration: callers treat every
// lookup as a miss.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
