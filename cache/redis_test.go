package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "insights"), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	e := Entry{Value: []byte(`{"dest":"CUN"}`), ExpiresAt: time.Now().Add(time.Hour), Tags: []string{"route_insights"}}
	require.NoError(t, s.Set(ctx, "hub|ATL", e))

	got, ok, err := s.Get(ctx, "hub|ATL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Value, got.Value)
	assert.Equal(t, []string{"route_insights"}, got.Tags)

	assert.True(t, mr.Exists("insights:entry:hub|ATL"))
	ttl := mr.TTL("insights:entry:hub|ATL")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl %s", ttl)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", Entry{Value: []byte(`1`), ExpiresAt: time.Now().Add(time.Minute)}))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreInvalidateTag(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.Set(ctx, "a", Entry{Value: []byte(`1`), ExpiresAt: exp, Tags: []string{"matrix_prices"}}))
	require.NoError(t, s.Set(ctx, "b", Entry{Value: []byte(`2`), ExpiresAt: exp, Tags: []string{"matrix_prices", "sent_deals"}}))
	require.NoError(t, s.Set(ctx, "c", Entry{Value: []byte(`3`), ExpiresAt: exp, Tags: []string{"sent_deals"}}))

	n, err := s.InvalidateTag(ctx, "matrix_prices")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ := s.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "c")
	assert.True(t, ok)

	n, err = s.InvalidateTag(ctx, "matrix_prices")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStoreSkipsExpiredEntries(t *testing.T) {
	s, mr := newTestRedis(t)
	require.NoError(t, s.Set(context.Background(), "gone", Entry{ExpiresAt: time.Now().Add(-time.Second)}))
	assert.False(t, mr.Exists("insights:entry:gone"))
}

func TestCacheOverRedis(t *testing.T) {
	s, _ := newTestRedis(t)
	c := New(s)
	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"LHR", "CDG"}, nil
	}
	policy := Policy{TTL: time.Hour, Tags: []string{"route_insights"}}

	for i := 0; i < 3; i++ {
		v, err := Cached(context.Background(), c, "dests", [][]string{{"BOS"}}, policy, compute)
		require.NoError(t, err)
		assert.Equal(t, []string{"LHR", "CDG"}, v)
	}
	assert.Equal(t, 1, calls)

	_, err := c.Invalidate(context.Background(), "route_insights")
	require.NoError(t, err)
	_, err = Cached(context.Background(), c, "dests", [][]string{{"BOS"}}, policy, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
