package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mythic3011/AED-Api/internal/domain"
)

// DB is the subset of pgxpool.Pool the repositories use. Tests substitute
// a pgxmock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
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

func (p *Postgres) AedRepo() AedRepository       { return p.Aeds }
func (p *Postgres) ReportRepo() ReportRepository { return p.Reports }
func (p *Postgres) StatsRepo() StatsRepository   { return p.Stats }
