package topic

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCacheGenerationsHideStaleFills(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCache(client, time.Minute)
	ctx := context.Background()

	_, gen, hit, err := c.Lookup(ctx)
	require.NoError(t, err)
	require.False(t, hit)
	require.Zero(t, gen)

	// a writer invalidates while a slow reader still holds generation 0
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Fill(ctx, gen, []Topic{{ID: "old", Name: "Stale"}}))

	_, gen, hit, err = c.Lookup(ctx)
	require.NoError(t, err)
	require.False(t, hit)
	require.EqualValues(t, 1, gen)

	require.NoError(t, c.Fill(ctx, gen, []Topic{{ID: "t1", Name: "Fractions"}}))
	list, _, hit, err := c.Lookup(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "Fractions", list[0].Name)
	require.Equal(t, time.Minute, mr.TTL("topics:all:1"))
}

func TestNilCacheNeverHits(t *testing.T) {
	var c *Cache
	_, _, hit, err := c.Lookup(context.Background())
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.Fill(context.Background(), 0, nil))
	require.NoError(t, c.Invalidate(context.Background()))
}
