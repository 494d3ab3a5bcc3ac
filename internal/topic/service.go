package topic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/events"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

// Input is the payload for creating or editing a topic.
type Input struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	Grade    string `json:"grade" validate:"max=32"`
	Category string `json:"category" validate:"max=200"`
}

// SeedRow is one entry of a bulk seed. Rows without a name are skipped.
type SeedRow struct {
	Name     string `json:"name"`
	Grade    string `json:"grade"`
	Category string `json:"category"`
}

// ServiceConfig configures the Service.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Hub    *events.Hub
	Logger zerolog.Logger
	Now    func() time.Time
}

// Service implements the topic catalog operations.
type Service struct {
	store  Store
	cache  *Cache
	hub    *events.Hub
	logger zerolog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("topic store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, hub: cfg.Hub, logger: cfg.Logger, now: now}, nil
}

// All returns the full catalog, served from cache when warm. Cache errors
// are logged and the store is used instead.
func (s *Service) All(ctx context.Context) ([]Topic, error) {
	cached, gen, hit, err := s.cache.Lookup(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("topic cache read failed")
	} else if hit {
		return cached, nil
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Topic{}
	}
	if err := s.cache.Fill(ctx, gen, list); err != nil {
		s.logger.Warn().Err(err).Int64("generation", gen).Msg("topic cache write failed")
	}
	return list, nil
}

// List returns topics, optionally restricted to one grade.
func (s *Service) List(ctx context.Context, grade string) ([]Topic, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByGrade(all, grade), nil
}

// Suggest returns ranked topics for grade. A negative limit means no limit.
func (s *Service) Suggest(ctx context.Context, grade string, limit int) ([]Topic, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(all, grade, limit), nil
}

// Add creates a topic.
func (s *Service) Add(ctx context.Context, in Input) (Topic, error) {
	t, err := s.fromInput(in)
	if err != nil {
		return Topic{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	created, err := s.store.Insert(ctx, t)
	if err != nil {
		return Topic{}, err
	}
	s.changed(ctx)
	return created, nil
}

// Update edits the name, grade and category of an existing topic.
func (s *Service) Update(ctx context.Context, id string, in Input) (Topic, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return Topic{}, common.NotFound("topic not found")
	}
	t, err := s.fromInput(in)
	if err != nil {
		return Topic{}, err
	}
	t.ID = strings.TrimSpace(id)
	updated, err := s.store.Update(ctx, t)
	if errors.Is(err, ErrNotFound) {
		return Topic{}, common.NotFound("topic not found")
	}
	if err != nil {
		return Topic{}, err
	}
	s.changed(ctx)
	return updated, nil
}

// Delete removes a topic.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return common.NotFound("topic not found")
	}
	err := s.store.Delete(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return common.NotFound("topic not found")
	}
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// BulkSeed inserts every row with a non-empty name and returns how many were written.
func (s *Service) BulkSeed(ctx context.Context, rows []SeedRow) (int, error) {
	now := s.now().UTC()
	list := make([]Topic, 0, len(rows))
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		list = append(list, Topic{
			ID:        uuid.NewString(),
			Name:      name,
			Grade:     strings.TrimSpace(r.Grade),
			Category:  strings.TrimSpace(r.Category),
			CreatedAt: now,
		})
	}
	if len(list) == 0 {
		return 0, nil
	}
	n, err := s.store.InsertMany(ctx, list)
	if err != nil {
		return 0, err
	}
	obs.RecordImport("topics", n)
	s.changed(ctx)
	return n, nil
}

func (s *Service) fromInput(in Input) (Topic, error) {
	t := Topic{
		Name:     strings.TrimSpace(in.Name),
		Grade:    strings.TrimSpace(in.Grade),
		Category: strings.TrimSpace(in.Category),
	}
	if t.Name == "" {
		return Topic{}, common.BadRequest("topic name is required")
	}
	return t, nil
}

// changed drops the cached list and pushes the fresh one to stream subscribers.
func (s *Service) changed(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("topic cache invalidation failed")
	}
	if s.hub == nil {
		return
	}
	list, err := s.All(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reload topics for stream")
		return
	}
	if err := s.hub.Publish(events.TopicsChanged, list); err != nil {
		s.logger.Warn().Err(err).Msg("publish topic change")
	}
}
