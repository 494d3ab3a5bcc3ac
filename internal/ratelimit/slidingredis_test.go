package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSlidingWindowAdmitsUpToMax(t *testing.T) {
	mr, client := newRedis(t)
	limiter := SlidingWindow{Client: client, Prefix: "rl:login"}
	ctx := context.Background()
	rule := Rule{Window: 2 * time.Second, Max: 2}

	for want := 1; want >= 0; want-- {
		d, err := limiter.Allow(ctx, "login:10.0.0.1", rule)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, want, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "login:10.0.0.1", rule)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.WithinDuration(t, time.Now().Add(rule.Window), d.Reset, time.Second)

	// rejected attempts are not stored
	members, err := mr.ZMembers("rl:login:login:10.0.0.1")
	require.NoError(t, err)
	require.Len(t, members, 2)

	mr.FastForward(rule.Window)
	d, err = limiter.Allow(ctx, "login:10.0.0.1", rule)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	_, client := newRedis(t)
	limiter := SlidingWindow{Client: client}
	rule := Rule{Window: time.Minute, Max: 1}

	d, err := limiter.Allow(context.Background(), "a", rule)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = limiter.Allow(context.Background(), "b", rule)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestDisabledRuleAlwaysAllows(t *testing.T) {
	_, client := newRedis(t)
	for _, b := range []Backend{SlidingWindow{Client: client}, NewMemoryLimiter("t")} {
		for i := 0; i < 3; i++ {
			d, err := b.Allow(context.Background(), "k", Rule{Window: time.Minute})
			require.NoError(t, err)
			require.True(t, d.Allowed)
		}
	}
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter("rl:login")
	rule := Rule{Window: time.Minute, Max: 2}
	var allowed []bool
	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(context.Background(), "login:10.0.0.9", rule)
		require.NoError(t, err)
		allowed = append(allowed, d.Allowed)
	}
	require.Equal(t, []bool{true, true, false}, allowed)
}
