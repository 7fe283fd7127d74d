package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/storage/redis"
	"github.com/mythic3011/AED-Api/pkg/e"
)

type reportService struct {
	repo   ReportRepository
	cache  Cache
	logger *slog.Logger
	ttl    time.Duration
}

func NewReportService(repo ReportRepository, cache Cache, logger *slog.Logger, ttl time.Duration) ReportService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &reportService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

// Create files the report. The referenced AED gets flagged in the same
// transaction, so listings must drop their cached copies too.
func (s *reportService) Create(ctx context.Context, aedID int64, req domain.CreateReportRequest) (*domain.Report, error) {
	report := &domain.Report{
		AedID:         aedID,
		ReportType:    domain.ReportType(req.ReportType),
		Description:   req.Description,
		ReporterName:  req.ReporterName,
		ReporterEmail: req.ReporterEmail,
		ReporterPhone: req.ReporterPhone,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report created",
		slog.Int64("report_id", report.ID),
		slog.Int64("aed_id", aedID),
		slog.String("type", string(report.ReportType)),
	)
	s.cache.Invalidate(ctx, "aeds:", "reports:", "stats:")

	return report, nil
}

func (s *reportService) List(ctx context.Context, q domain.ListReportsQuery) (*domain.ReportPage, error) {
	key := redis.Fingerprint("reports:list", map[string]any{
		"aed_id": q.AedID,
		"type":   q.ReportType,
		"status": q.Status,
		"limit":  q.Limit,
		"offset": q.Offset,
	})

	return redis.GetOrCompute(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*domain.ReportPage, error) {
		reports, total, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		return &domain.ReportPage{
			Reports: reports,
			Total:   total,
			Limit:   q.Limit,
			Offset:  q.Offset,
		}, nil
	})
}

func (s *reportService) Get(ctx context.Context, id int64) (*domain.Report, error) {
	return s.repo.Get(ctx, id)
}

// UpdateStatus moves the report to any member of the status set.
// Unknown statuses are rejected before touching storage.
func (s *reportService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Report, error) {
	if !domain.ValidStatus(domain.ReportStatus(status)) {
		return nil, fmt.Errorf("status %q: %w", status, e.ErrInvalidEnum)
	}

	report, err := s.repo.UpdateStatus(ctx, id, domain.ReportStatus(status))
	if err != nil {
		return nil, err
	}

	s.logger.Info("report status updated",
		slog.Int64("report_id", id),
		slog.String("status", status),
	)
	s.cache.Invalidate(ctx, "reports:", "stats:")

	return report, nil
}
