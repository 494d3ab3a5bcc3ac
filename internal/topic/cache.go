package topic

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey = "topics:gen"
	catalogPrefix = "topics:all:"
)

// Cache keeps the serialised catalog in Redis under a generation number.
// Invalidate bumps the generation instead of deleting, so a reader that
// loaded the store before a write can only fill the old, unreachable key.
// A nil Cache never hits.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Lookup returns the cached catalog for the current generation. gen must be
// passed back to Fill on a miss.
func (c *Cache) Lookup(ctx context.Context) (list []Topic, gen int64, hit bool, err error) {
	if !c.enabled() {
		return nil, 0, false, nil
	}
	gen, err = c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	raw, err := c.client.Get(ctx, catalogKey(gen)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, gen, false, nil
	case err != nil:
		return nil, gen, false, err
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, gen, false, err
	}
	return list, gen, true, nil
}

// Fill stores list as the catalog of generation gen.
func (c *Cache) Fill(ctx context.Context, gen int64, list []Topic) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey(gen), raw, c.ttl).Err()
}

// Invalidate retires the current catalog entry.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

func catalogKey(gen int64) string { return catalogPrefix + strconv.FormatInt(gen, 10) }
