// Package cache memoizes read-model results with per-entry TTLs and tag invalidation.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/metrics"
)

const defaultComputeTimeout = 30 * time.Second

// Policy is how long a read model stays fresh and which data sources it depends on.
type Policy struct {
	TTL  time.Duration
	Tags []string
}

// Cache sits in front of a Store. Concurrent misses for one key share a single
// computation. Invalidating a tag bumps its generation; a computation that started
// under an older generation is not stored, and later callers do not join it.
type Cache struct {
	store          Store
	now            func() time.Time
	computeTimeout time.Duration
	group          singleflight.Group
	log            zerolog.Logger

	mu       sync.Mutex
	gens     map[string]uint64
	inflight map[string]map[string]int // tag -> key -> running computations
}

type Option func(*Cache)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithComputeTimeout bounds a shared computation, which runs detached from any single
// caller's context.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.computeTimeout = d
		}
	}
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:          store,
		now:            time.Now,
		computeTimeout: defaultComputeTimeout,
		log:            logging.With("cache"),
		gens:           make(map[string]uint64),
		inflight:       make(map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

// Key builds the cache key for name and its argument groups. Each group is trimmed,
// upper-cased, deduplicated and sorted on its own, so the same codes in any order map
// to one key while groups keep their positions.
func Key(name string, groups ...[]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, g := range groups {
		b.WriteByte('|')
		b.WriteString(strings.Join(normalizeParts(g), ","))
	}
	return b.String()
}

func normalizeParts(parts []string) []string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Invalidate force-expires every entry tagged with tag.
func (c *Cache) Invalidate(ctx context.Context, tag string) (int, error) {
	c.mu.Lock()
	c.gens[tag]++
	for key := range c.inflight[tag] {
		c.group.Forget(key)
	}
	c.mu.Unlock()

	n, err := c.store.InvalidateTag(ctx, tag)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("failed to invalidate tag %s: %w", tag, err)
	}
	metrics.CacheInvalidations.WithLabelValues(tag).Add(float64(n))
	c.log.Info().Str("tag", tag).Int("removed", n).Msg("cache tag invalidated")
	return n, nil
}

// Cached returns the fresh value for name and parts, computing and storing it on a
// miss. Every caller receives its own decoded copy. Store failures degrade to a direct
// compute; compute errors are never cached.
func Cached[T any](ctx context.Context, c *Cache, name string, parts [][]string, policy Policy, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	key := Key(name, parts...)

	if v, ok := lookup[T](ctx, c, name, key); ok {
		return v, nil
	}
	metrics.CacheMisses.WithLabelValues(name).Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		snap := c.begin(key, policy.Tags)
		defer c.end(key, policy.Tags)

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()

		v, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if c.invalidatedSince(snap) {
			c.log.Debug().Str("key", key).Msg("tag invalidated during compute; result not stored")
			return raw, nil
		}
		entry := Entry{Value: raw, ExpiresAt: c.now().Add(policy.TTL), Tags: policy.Tags}
		if err := c.store.Set(cctx, key, entry); err != nil {
			metrics.CacheErrors.WithLabelValues("set").Inc()
			c.log.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
		}
		// An invalidation that landed between the check and the Set found nothing to remove.
		if c.invalidatedSince(snap) {
			_ = c.store.Delete(cctx, key)
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		var out T
		if err := json.Unmarshal(res.Val.([]byte), &out); err != nil {
			return zero, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		return out, nil
	}
}

// begin registers key as computing under tags and snapshots their generations.
func (c *Cache) begin(key string, tags []string) map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(map[string]uint64, len(tags))
	for _, tag := range tags {
		snap[tag] = c.gens[tag]
		keys := c.inflight[tag]
		if keys == nil {
			keys = make(map[string]int)
			c.inflight[tag] = keys
		}
		keys[key]++
	}
	return snap
}

func (c *Cache) end(key string, tags []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		keys := c.inflight[tag]
		if keys[key]--; keys[key] <= 0 {
			delete(keys, key)
		}
		if len(keys) == 0 {
			delete(c.inflight, tag)
		}
	}
}

func (c *Cache) invalidatedSince(snap map[string]uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tag, gen := range snap {
		if c.gens[tag] != gen {
			return true
		}
	}
	return false
}

func lookup[T any](ctx context.Context, c *Cache, name, key string) (T, bool) {
	var zero T
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return zero, false
	}
	if !ok || e.Expired(c.now()) {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(e.Value, &out); err != nil {
		metrics.CacheErrors.WithLabelValues("decode").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = c.store.Delete(ctx, key)
		return zero, false
	}
	metrics.CacheHits.WithLabelValues(name).Inc()
	return out, true
}
