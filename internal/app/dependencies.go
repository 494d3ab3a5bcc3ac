package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/remotehive-dev/Spark-Configurator/internal/config"
	"github.com/remotehive-dev/Spark-Configurator/internal/health"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
	"github.com/remotehive-dev/Spark-Configurator/internal/ratelimit"
)

// Dependencies holds the shared infrastructure clients. DB and Redis are nil
// when their URLs are not configured.
type Dependencies struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// Connect opens the configured database and Redis connections, applying
// migrations when enabled.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := openPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.DB = pool
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	if cfg.RedisURL != "" {
		client, err := openRedis(ctx, cfg, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
	} else {
		logger.Warn().Msg("REDIS_URL not set, topic cache disabled and rate limits are per process")
	}
	return deps, nil
}

func openPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "spark-configurator"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RateLimiter returns the Redis sliding window limiter when Redis is
// available and a process-local limiter otherwise.
func (d *Dependencies) RateLimiter(prefix string) ratelimit.Backend {
	if d != nil && d.Redis != nil {
		return ratelimit.SlidingWindow{Client: d.Redis, Prefix: prefix}
	}
	return ratelimit.NewMemoryLimiter(prefix)
}

// Probes returns the readiness checks for Postgres and Redis. A dependency
// that is not configured reports health.ErrDisabled.
func (d *Dependencies) Probes(dbTimeout, redisTimeout time.Duration) []health.Probe {
	db := func(context.Context) error { return health.ErrDisabled }
	cache := db
	if d != nil && d.DB != nil {
		db = d.DB.Ping
	}
	if d != nil && d.Redis != nil {
		cache = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	return []health.Probe{
		{Name: "db", Timeout: dbTimeout, Check: db},
		{Name: "redis", Timeout: redisTimeout, Check: cache},
	}
}

// Close releases every open connection.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
