package service

import (
	"context"
	"time"

	"github.com/mythic3011/AED-Api/internal/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// AedService answers the public locator queries.
type AedService interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.AEDWithDistance, error)
	SortedByDistance(ctx context.Context, q domain.SortedQuery) ([]domain.AEDWithDistance, error)
	List(ctx context.Context, q domain.ListAedsQuery) (*domain.AedPage, error)
	Get(ctx context.Context, id int64) (*domain.AED, error)
}

// ReportService handles issue reports filed against an AED.
type ReportService interface {
	Create(ctx context.Context, aedID int64, req domain.CreateReportRequest) (*domain.Report, error)
	List(ctx context.Context, q domain.ListReportsQuery) (*domain.ReportPage, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Report, error)
}

// StatsService summarizes the dataset and report backlog.
type StatsService interface {
	Summary(ctx context.Context) (*domain.Stats, error)
}

// RefreshService re-imports the upstream AED dataset. Enqueue is called
// by the admin endpoint; Run by the background worker.
type RefreshService interface {
	Enqueue(ctx context.Context, requestedBy string) (domain.RefreshJob, error)
	Run(ctx context.Context, job domain.RefreshJob) (*domain.RefreshResult, error)
}

type AedRepository interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.AEDWithDistance, error)
	SortedByDistance(ctx context.Context, q domain.SortedQuery) ([]domain.AEDWithDistance, error)
	List(ctx context.Context, q domain.ListAedsQuery) ([]domain.AED, int64, error)
	Get(ctx context.Context, id int64) (*domain.AED, error)
	ReplaceAll(ctx context.Context, aeds []domain.AED) (int, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	List(ctx context.Context, q domain.ListReportsQuery) ([]domain.Report, int64, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ReportStatus) (*domain.Report, error)
}

type StatsRepository interface {
	Collect(ctx context.Context) (*domain.Stats, error)
}

// Cache is the query cache as the services see it: reads may miss,
// writes may silently fail, invalidation sweeps by key prefix.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, prefixes ...string)
}

// RefreshQueue hands refresh jobs to the background worker.
type RefreshQueue interface {
	Enqueue(ctx context.Context, job domain.RefreshJob) error
}

type Service struct {
	Aeds    AedService
	Reports ReportService
	Stats   StatsService
	Refresh RefreshService
}

func NewService(
	aeds AedService,
	reports ReportService,
	stats StatsService,
	refresh RefreshService,
) *Service {
	return &Service{
		Aeds:    aeds,
		Reports: reports,
		Stats:   stats,
		Refresh: refresh,
	}
}
