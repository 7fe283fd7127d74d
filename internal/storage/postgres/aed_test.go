package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/storage/postgres"
	"github.com/mythic3011/AED-Api/pkg/e"
	"github.com/mythic3011/AED-Api/pkg/retry"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newExecutor(attempts int) *postgres.Executor {
	return postgres.NewExecutor(retry.Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}, discardLogger, nil)
}

var aedRowColumns = []string{
	"id", "name", "address", "location_detail", "latitude", "longitude",
	"public_use", "allowed_operators", "access_persons", "category",
	"service_hours", "brand", "model", "remark", "is_flagged", "flag_reason", "flagged_at",
}

func distanceRows(t *testing.T) *pgxmock.Rows {
	t.Helper()
	cols := append(append([]string{}, aedRowColumns...), "distance_km")
	return pgxmock.NewRows(cols)
}

func addAedRow(rows *pgxmock.Rows, id int64, name string, lat, lng, dist float64) {
	rows.AddRow(
		id, name, "addr", "detail", lat, lng,
		true, "Anyone", "Public", "Government",
		"24 hours", "brand", "model", "", false, nil, nil,
		dist,
	)
}

func TestAedRepo_Nearby_OrderedWithinRadius(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := distanceRows(t)
	addAedRow(rows, 3, "Closest", 22.3195, 114.1690, 0.05)
	addAedRow(rows, 1, "Middle", 22.3220, 114.1700, 0.31)
	addAedRow(rows, 7, "Farthest", 22.3270, 114.1710, 0.88)

	mock.ExpectQuery(`SELECT .+ FROM aeds\s+WHERE ST_DWithin`).
		WithArgs(114.1694, 22.3193, 1.0, 5, 0).
		WillReturnRows(rows)

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	got, err := repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 5, Offset: 0,
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, 0.05, got[0].DistanceKM)
	assert.Equal(t, "~50 m", got[0].DistanceDisplay)
	assert.Equal(t, int64(7), got[2].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_Nearby_CapsLimit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM aeds\s+WHERE ST_DWithin`).
		WithArgs(114.1694, 22.3193, 1.0, 200, 0).
		WillReturnRows(distanceRows(t))

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	got, err := repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 5000,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_Nearby_OffsetPastEndReturnsEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM aeds\s+WHERE ST_DWithin`).
		WithArgs(114.1694, 22.3193, 1.0, 50, 10000).
		WillReturnRows(distanceRows(t))

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	got, err := repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 50, Offset: 10000,
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_Nearby_RetriesConnectionErrorThenSucceeds(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	connErr := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	query := `SELECT .+ FROM aeds\s+WHERE ST_DWithin`

	mock.ExpectQuery(query).WithArgs(114.1694, 22.3193, 1.0, 5, 0).WillReturnError(connErr)
	mock.ExpectQuery(query).WithArgs(114.1694, 22.3193, 1.0, 5, 0).WillReturnError(connErr)

	rows := distanceRows(t)
	addAedRow(rows, 1, "Recovered", 22.32, 114.17, 0.12)
	mock.ExpectQuery(query).WithArgs(114.1694, 22.3193, 1.0, 5, 0).WillReturnRows(rows)

	repo := postgres.NewAedRepo(mock, newExecutor(3), discardLogger)

	got, err := repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Recovered", got[0].Name)

	// all three expected calls were consumed: exactly 3 attempts
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_Nearby_NonRetryableFailsAfterOneAttempt(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM aeds\s+WHERE ST_DWithin`).
		WithArgs(114.1694, 22.3193, 1.0, 5, 0).
		WillReturnError(&pgconn.PgError{Code: "42601", Message: "syntax error"})

	repo := postgres.NewAedRepo(mock, newExecutor(3), discardLogger)

	_, err = repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrQueryFailed)
	assert.NotContains(t, err.Error(), "syntax error") // raw driver text stays out

	// a single expectation was consumed: no retry happened
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_Nearby_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	connErr := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	query := `SELECT .+ FROM aeds\s+WHERE ST_DWithin`
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(query).WithArgs(114.1694, 22.3193, 1.0, 5, 0).WillReturnError(connErr)
	}

	repo := postgres.NewAedRepo(mock, newExecutor(3), discardLogger)

	_, err = repo.Nearby(context.Background(), domain.NearbyQuery{
		Lat: 22.3193, Lng: 114.1694, RadiusKM: 1.0, Limit: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrConnection)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_SortedByDistance(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := distanceRows(t)
	addAedRow(rows, 2, "Near", 22.32, 114.17, 0.4)
	addAedRow(rows, 9, "Far", 22.50, 114.30, 25.73)

	mock.ExpectQuery(`SELECT .+ FROM aeds\s+ORDER BY distance_km`).
		WithArgs(114.1694, 22.3193, 100, 0).
		WillReturnRows(rows)

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	got, err := repo.SortedByDistance(context.Background(), domain.SortedQuery{
		Lat: 22.3193, Lng: 114.1694, Limit: 100,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "~25.7 km", got[1].DistanceDisplay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_List_SortWhitelist(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM aeds`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	rows := pgxmock.NewRows(aedRowColumns)
	rows.AddRow(
		int64(1), "Station AED", "addr", "", 22.3, 114.1,
		true, "", "", "", "", "", "", "", false, nil, nil,
	)
	// injection-ish sort field falls back to id
	mock.ExpectQuery(`ORDER BY id ASC, id ASC`).
		WithArgs(50, 0).
		WillReturnRows(rows)

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	got, total, err := repo.List(context.Background(), domain.ListAedsQuery{
		Limit: 50, SortBy: "id; DROP TABLE aeds", Order: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, "Station AED", got[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_ReplaceAll_TransactionalSwap(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM aeds`)).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))
	mock.ExpectExec(`INSERT INTO aeds`).
		WithArgs("A", "addr", "", 22.3, 114.1, true, "", "", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO aeds`).
		WithArgs("B", "addr", "", 22.4, 114.2, false, "", "", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	inserted, err := repo.ReplaceAll(context.Background(), []domain.AED{
		{Name: "A", Address: "addr", Latitude: 22.3, Longitude: 114.1, PublicUse: true},
		{Name: "B", Address: "addr", Latitude: 22.4, Longitude: 114.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAedRepo_ReplaceAll_RollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM aeds`)).
		WillReturnResult(pgxmock.NewResult("DELETE", 10))
	mock.ExpectExec(`INSERT INTO aeds`).
		WithArgs("A", "addr", "", 22.3, 114.1, true, "", "", "", "", "", "", "").
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check violation"})
	mock.ExpectRollback()

	repo := postgres.NewAedRepo(mock, newExecutor(1), discardLogger)

	_, err = repo.ReplaceAll(context.Background(), []domain.AED{
		{Name: "A", Address: "addr", Latitude: 22.3, Longitude: 114.1, PublicUse: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrQueryFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
