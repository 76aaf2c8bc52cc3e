package cache

import (
	"context"
	"time"
)

// Entry is one stored value. Value holds the JSON encoding of the cached result.
type Entry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Tags      []string  `json:"tags,omitempty"`
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is the backing map of a Cache. Implementations must be safe for concurrent
// use and must never expose a partially written Entry.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	// InvalidateTag removes every entry carrying tag and returns how many were removed.
	InvalidateTag(ctx context.Context, tag string) (int, error)
}
