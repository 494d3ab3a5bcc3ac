// Command seeder loads the default topic catalog and the bootstrap admin
// account into the configured database.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/remotehive-dev/Spark-Configurator/internal/app"
	"github.com/remotehive-dev/Spark-Configurator/internal/auth"
	"github.com/remotehive-dev/Spark-Configurator/internal/config"
	"github.com/remotehive-dev/Spark-Configurator/internal/lock"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
	"github.com/remotehive-dev/Spark-Configurator/internal/topic"
)

//go:embed topics.json
var defaultTopics []byte

func main() {
	topicsPath := flag.String("topics", "", "JSON file with [{name, grade, category}] rows; defaults to the built-in catalog")
	force := flag.Bool("force", false, "seed topics even when the catalog is not empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Obs.ServiceName, cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("tool", "seeder").Logger()

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deps, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect dependencies")
	}
	defer deps.Close()

	if err := run(ctx, cfg, deps, logger, *topicsPath, *force); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
}

func run(ctx context.Context, cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger, topicsPath string, force bool) error {
	rows, err := loadTopics(topicsPath)
	if err != nil {
		return err
	}

	var cache *topic.Cache
	if deps.Redis != nil {
		cache = topic.NewCache(deps.Redis, cfg.TopicCacheTTL)
	}
	topics, err := topic.NewService(topic.ServiceConfig{
		Store:  topic.NewPostgresStore(deps.DB),
		Cache:  cache,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	var inserted int
	guard := lock.Guard{Client: deps.Redis, Wait: 30 * time.Second}
	err = guard.Do(ctx, "lock:seed:topics", 5*time.Minute, func(ctx context.Context) error {
		n, err := seedTopics(ctx, topics, rows, force)
		inserted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("seed topics: %w", err)
	}
	logger.Info().Int("inserted", inserted).Msg("topics seeded")

	if cfg.BootstrapAdminUsername == "" {
		logger.Info().Msg("BOOTSTRAP_ADMIN_USERNAME not set, skipping admin account")
		return nil
	}
	accounts, err := auth.NewService(auth.Config{
		Store:          auth.NewPostgresStore(deps.DB),
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return err
	}
	created, err := accounts.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info().Bool("created", created).Str("username", cfg.BootstrapAdminUsername).Msg("admin account ready")
	return nil
}

// seedTopics writes rows unless the catalog already has entries and force is unset.
func seedTopics(ctx context.Context, svc *topic.Service, rows []topic.SeedRow, force bool) (int, error) {
	if !force {
		existing, err := svc.All(ctx)
		if err != nil {
			return 0, err
		}
		if len(existing) > 0 {
			return 0, nil
		}
	}
	return svc.BulkSeed(ctx, rows)
}

func loadTopics(path string) ([]topic.SeedRow, error) {
	raw := defaultTopics
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read topics: %w", err)
		}
		raw = b
	}
	var rows []topic.SeedRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("topics file is empty")
	}
	return rows, nil
}
