package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mythic3011/AED-Api/internal/api"
	"github.com/mythic3011/AED-Api/internal/api/handlers/http/system"
	"github.com/mythic3011/AED-Api/internal/config"
	"github.com/mythic3011/AED-Api/internal/metrics"
	"github.com/mythic3011/AED-Api/internal/service"
	"github.com/mythic3011/AED-Api/internal/storage/postgres"
	"github.com/mythic3011/AED-Api/internal/storage/redis"
	"github.com/mythic3011/AED-Api/internal/workers"
	"github.com/mythic3011/AED-Api/pkg/logger"
)

type Components struct {
	logger        *slog.Logger
	HttpServer    *api.Server
	Postgres      *postgres.Postgres
	Redis         *redis.Redis
	RefreshQueue  *redis.RefreshQueue
	RefreshWorker *workers.RefreshWorker
}

func InitComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	log.Info("Initializing Postgres")
	storage, err := postgres.NewPostgres(ctx, cfg, log, m)
	if err != nil {
		log.Error("Failed to init postgres", slog.Any("error", err))
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	log.Info("Initializing Redis")
	redisClient, err := redis.NewRedis(ctx, cfg, log)
	if err != nil {
		storage.Pool.Close()
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	cache := redis.NewQueryCache(redisClient.Client, log, m)
	refreshQueue := redis.NewRefreshQueue(redisClient.Client, cfg.Refresh.QueueKey)
	fetcher := service.NewHTTPFetcher(cfg.Refresh.SourceURL, cfg.Refresh.Timeout)

	aedSvc := service.NewAedService(storage.Aeds, cache, log, cfg.Cache.TTL)
	reportSvc := service.NewReportService(storage.Reports, cache, log, cfg.Cache.TTL)
	statsSvc := service.NewStatsService(storage.Stats, cache, log, cfg.Cache.StatsTTL)
	refreshSvc := service.NewRefreshService(refreshQueue, fetcher, storage.Aeds, cache, log)

	svc := service.NewService(aedSvc, reportSvc, statsSvc, refreshSvc)

	checks := map[string]system.Check{
		"postgres": storage.Pool.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Client.Ping(ctx).Err()
		},
	}

	httpServer := api.NewServer(cfg, log, svc, registry, checks)
	worker := workers.NewRefreshWorker(refreshQueue, refreshSvc, log)
	log.Info("Initialized server")

	return &Components{
		logger:        log,
		HttpServer:    httpServer,
		Postgres:      storage,
		Redis:         redisClient,
		RefreshQueue:  refreshQueue,
		RefreshWorker: worker,
	}, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Component shutdown started")

	c.Postgres.Pool.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
