package postgres

import (
	"context"
	"log/slog"

	"github.com/mythic3011/AED-Api/internal/domain"
)

type StatsRepo struct {
	db     DB
	ex     *Executor
	logger *slog.Logger
}

func NewStatsRepo(db DB, ex *Executor, logger *slog.Logger) *StatsRepo {
	return &StatsRepo{db: db, ex: ex, logger: logger}
}

// Collect gathers dataset and report counters in one logical read.
func (r *StatsRepo) Collect(ctx context.Context) (*domain.Stats, error) {
	const op = "postgres.Stats.Collect"

	const aedQuery = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE public_use),
       COUNT(*) FILTER (WHERE is_flagged)
FROM aeds`

	const statusQuery = `SELECT status, COUNT(*) FROM reports GROUP BY status`
	const typeQuery = `SELECT report_type, COUNT(*) FROM reports GROUP BY report_type`

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) (*domain.Stats, error) {
		stats := &domain.Stats{
			ReportsByStatus: make(map[string]int64),
			ReportsByType:   make(map[string]int64),
		}

		if err := r.db.QueryRow(ctx, aedQuery).Scan(
			&stats.TotalAeds, &stats.PublicAeds, &stats.FlaggedAeds,
		); err != nil {
			r.logger.Error("aed counts failed", slog.String("op", op), slog.Any("error", err))
			return nil, err
		}

		rows, err := r.db.Query(ctx, statusQuery)
		if err != nil {
			r.logger.Error("status counts failed", slog.String("op", op), slog.Any("error", err))
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int64
			if err := rows.Scan(&status, &count); err != nil {
				return nil, err
			}
			stats.ReportsByStatus[status] = count
			stats.TotalReports += count
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		typeRows, err := r.db.Query(ctx, typeQuery)
		if err != nil {
			r.logger.Error("type counts failed", slog.String("op", op), slog.Any("error", err))
			return nil, err
		}
		defer typeRows.Close()
		for typeRows.Next() {
			var reportType string
			var count int64
			if err := typeRows.Scan(&reportType, &count); err != nil {
				return nil, err
			}
			stats.ReportsByType[reportType] = count
		}
		return stats, typeRows.Err()
	})
}
