package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// StoreLimiter adapts a ulule limiter store to Backend. The API falls back to
// it when no Redis is configured; its windows are fixed, not sliding.
type StoreLimiter struct {
	Store limiter.Store
}

func NewMemoryLimiter(prefix string) StoreLimiter {
	return StoreLimiter{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

func (s StoreLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	if s.Store == nil || rule.disabled() {
		return Decision{Allowed: true, Remaining: rule.Max, Reset: time.Now().Add(rule.Window)}, nil
	}
	st, err := s.Store.Get(ctx, key, limiter.Rate{Period: rule.Window, Limit: int64(rule.Max)})
	if err != nil {
		return Decision{Reset: time.Now().Add(rule.Window)}, err
	}
	return Decision{Allowed: !st.Reached, Remaining: int(st.Remaining), Reset: time.Unix(st.Reset, 0)}, nil
}
