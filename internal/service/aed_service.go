package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/storage/redis"
)

type aedService struct {
	repo   AedRepository
	cache  Cache
	logger *slog.Logger
	ttl    time.Duration
}

func NewAedService(repo AedRepository, cache Cache, logger *slog.Logger, ttl time.Duration) AedService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &aedService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

func (s *aedService) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.AEDWithDistance, error) {
	key := redis.Fingerprint("aeds:nearby", map[string]any{
		"lat":         q.Lat,
		"lng":         q.Lng,
		"radius_km":   q.RadiusKM,
		"limit":       q.Limit,
		"offset":      q.Offset,
		"public_only": q.PublicOnly,
	})

	return redis.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]domain.AEDWithDistance, error) {
		s.logger.Debug("nearby cache miss", slog.String("key", key))
		return s.repo.Nearby(ctx, q)
	})
}

func (s *aedService) SortedByDistance(ctx context.Context, q domain.SortedQuery) ([]domain.AEDWithDistance, error) {
	key := redis.Fingerprint("aeds:sorted", map[string]any{
		"lat":    q.Lat,
		"lng":    q.Lng,
		"limit":  q.Limit,
		"offset": q.Offset,
	})

	return redis.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]domain.AEDWithDistance, error) {
		return s.repo.SortedByDistance(ctx, q)
	})
}

func (s *aedService) List(ctx context.Context, q domain.ListAedsQuery) (*domain.AedPage, error) {
	key := redis.Fingerprint("aeds:list", map[string]any{
		"limit":   q.Limit,
		"offset":  q.Offset,
		"sort_by": q.SortBy,
		"order":   q.Order,
	})

	return redis.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*domain.AedPage, error) {
		aeds, total, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		return &domain.AedPage{
			Aeds:   aeds,
			Total:  total,
			Limit:  q.Limit,
			Offset: q.Offset,
		}, nil
	})
}

func (s *aedService) Get(ctx context.Context, id int64) (*domain.AED, error) {
	return s.repo.Get(ctx, id)
}
