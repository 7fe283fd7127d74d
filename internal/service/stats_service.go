package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/storage/redis"
)

type statsService struct {
	repo   StatsRepository
	cache  Cache
	logger *slog.Logger
	ttl    time.Duration
}

func NewStatsService(repo StatsRepository, cache Cache, logger *slog.Logger, ttl time.Duration) StatsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &statsService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

func (s *statsService) Summary(ctx context.Context) (*domain.Stats, error) {
	return redis.GetOrCompute(ctx, s.cache, "stats:summary", s.ttl, func(ctx context.Context) (*domain.Stats, error) {
		s.logger.Debug("stats cache miss, collecting")
		return s.repo.Collect(ctx)
	})
}
