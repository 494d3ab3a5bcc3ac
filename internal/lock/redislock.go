// Package lock serialises one-off jobs, such as catalog seeding, across
// processes that share a Redis instance.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld means another holder kept the lock past the wait budget.
	ErrHeld = errors.New("lock: held by another process")
	// ErrLost means the lease expired or was taken over while the job ran.
	ErrLost = errors.New("lock: lease lost")
)

// Both scripts act only when the key still carries our token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Guard runs callbacks under a Redis lease. The lease is renewed every
// third of its TTL while the callback runs. Without a client the callback
// runs directly, which is correct for a single process.
type Guard struct {
	Client *redis.Client
	// Wait bounds how long Do retries a held lock. Zero means one attempt.
	Wait time.Duration
	// Retry is the pause between attempts.
	Retry time.Duration
}

// Do executes fn while holding key. If the lease is lost, fn's context is
// cancelled and Do reports ErrLost.
func (g Guard) Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if g.Client == nil {
		return fn(ctx)
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	if err := g.acquire(ctx, key, token, ttl); err != nil {
		return err
	}
	defer g.release(key, token)

	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopRenew := make(chan struct{})
	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		g.renew(jobCtx, key, token, ttl, stopRenew, cancel)
	}()

	err := fn(jobCtx)
	close(stopRenew)
	<-renewDone
	if errors.Is(context.Cause(jobCtx), ErrLost) {
		return errors.Join(ErrLost, err)
	}
	return err
}

func (g Guard) acquire(ctx context.Context, key, token string, ttl time.Duration) error {
	retry := g.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	deadline := time.Now().Add(g.Wait)
	for {
		ok, err := g.Client.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			return fmt.Errorf("lock: acquire %s: %w", key, err)
		case ok:
			return nil
		case !time.Now().Before(deadline):
			return ErrHeld
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func (g Guard) renew(ctx context.Context, key, token string, ttl time.Duration, stop <-chan struct{}, lost context.CancelCauseFunc) {
	tick := time.NewTicker(max(ttl/3, time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		n, err := renewScript.Run(ctx, g.Client, []string{key}, token, ttl.Milliseconds()).Int()
		if err == nil && n == 0 {
			lost(ErrLost)
			return
		}
		// transient errors are retried on the next tick; the TTL still covers us
	}
}

func (g Guard) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, g.Client, []string{key}, token).Err()
}
