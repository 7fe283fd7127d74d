package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/storage/postgres"
	"github.com/mythic3011/AED-Api/pkg/e"
)

var reportRowColumns = []string{
	"id", "aed_id", "report_type", "description",
	"reporter_name", "reporter_email", "reporter_phone", "status", "created_at",
}

func TestReportRepo_Create_FlagsAedAndInserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE aeds\s+SET is_flagged = true`).
		WithArgs(int64(42), "damaged").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO reports`).
		WithArgs(int64(42), "damaged", "pads missing", "Alex", "alex@example.com", "", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))
	mock.ExpectCommit()

	repo := postgres.NewReportRepo(mock, newExecutor(1), discardLogger)

	report := &domain.Report{
		AedID:         42,
		ReportType:    domain.ReportDamaged,
		Description:   "pads missing",
		ReporterName:  "Alex",
		ReporterEmail: "alex@example.com",
	}
	require.NoError(t, repo.Create(context.Background(), report))

	assert.Equal(t, int64(7), report.ID)
	assert.Equal(t, domain.StatusPending, report.Status)
	assert.Equal(t, created, report.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_Create_UnknownAedRollsBack(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE aeds\s+SET is_flagged = true`).
		WithArgs(int64(9999), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	repo := postgres.NewReportRepo(mock, newExecutor(1), discardLogger)

	err = repo.Create(context.Background(), &domain.Report{
		AedID:      9999,
		ReportType: domain.ReportMissing,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_List_FiltersBindAsPlaceholders(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM reports`)).
		WithArgs(int64(42), "damaged", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	rows := pgxmock.NewRows(reportRowColumns).
		AddRow(int64(8), int64(42), "damaged", "second", nil, nil, nil, "pending",
			time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)).
		AddRow(int64(7), int64(42), "damaged", "first", nil, nil, nil, "pending",
			time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WithArgs(int64(42), "damaged", "pending", 50, 0).
		WillReturnRows(rows)

	repo := postgres.NewReportRepo(mock, newExecutor(1), discardLogger)

	reports, total, err := repo.List(context.Background(), domain.ListReportsQuery{
		AedID:      42,
		ReportType: "damaged",
		Status:     "pending",
		Limit:      50,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(8), reports[0].ID)
	assert.Empty(t, reports[0].ReporterName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_UpdateStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE reports\s+SET status = \$2`).
		WithArgs(int64(7), "resolved").
		WillReturnRows(pgxmock.NewRows(reportRowColumns).
			AddRow(int64(7), int64(42), "damaged", "pads missing", nil, nil, nil, "resolved",
				time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)))

	repo := postgres.NewReportRepo(mock, newExecutor(1), discardLogger)

	report, err := repo.UpdateStatus(context.Background(), 7, domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, report.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepo_UpdateStatus_UnknownReport(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`UPDATE reports\s+SET status = \$2`).
		WithArgs(int64(404), "rejected").
		WillReturnError(pgx.ErrNoRows)

	repo := postgres.NewReportRepo(mock, newExecutor(1), discardLogger)

	_, err = repo.UpdateStatus(context.Background(), 404, domain.StatusRejected)
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
