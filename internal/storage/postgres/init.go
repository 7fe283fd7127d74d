package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mythic3011/AED-Api/internal/config"
	"github.com/mythic3011/AED-Api/internal/metrics"
	"github.com/mythic3011/AED-Api/pkg/e"
	"github.com/mythic3011/AED-Api/pkg/retry"
)

type Postgres struct {
	Pool    *pgxpool.Pool
	Aeds    AedRepository
	Reports ReportRepository
	Stats   StatsRepository
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("Failed to ping Postgres database", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres successfully",
		slog.String("host", cfg.Postgres.Host),
		slog.String("database", cfg.Postgres.Database))

	if err := EnsureSchema(ctx, pool); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		pool.Close()
		return nil, err
	}

	executor := NewExecutor(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		AddJitter:   true,
	}, logger, m)

	return &Postgres{
		Pool:    pool,
		Aeds:    NewAedRepo(pool, executor, logger),
		Reports: NewReportRepo(pool, executor, logger),
		Stats:   NewStatsRepo(pool, executor, logger),
	}, nil
}
