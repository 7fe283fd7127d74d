package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mythic3011/AED-Api/internal/domain"
)

// MaxLimit caps page sizes to bound response size and query cost.
const MaxLimit = 200

type AedRepo struct {
	db     DB
	ex     *Executor
	logger *slog.Logger
}

func NewAedRepo(db DB, ex *Executor, logger *slog.Logger) *AedRepo {
	return &AedRepo{db: db, ex: ex, logger: logger}
}

// aedColumns is the shared projection; distance queries append distance_km.
const aedColumns = `id, name, address, location_detail, latitude, longitude,
       public_use, allowed_operators, access_persons, category,
       service_hours, brand, model, remark, is_flagged, flag_reason, flagged_at`

// distanceExpr computes great-circle kilometers with the same geography
// cast the spatial index uses, rounded to 2 decimal places so the value
// ordered by, paginated on, and returned to the caller are identical.
const distanceExpr = `ROUND((ST_Distance(
         geo_point::geography,
         ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
       ) / 1000)::numeric, 2)::float8`

// Nearby returns records within q.RadiusKM of the origin, ascending by
// rounded distance with id as the tiebreak. Offsets past the result set
// yield an empty slice. Inputs are validated by the caller.
func (r *AedRepo) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.AEDWithDistance, error) {
	const op = "postgres.AED.Nearby"

	query := `
SELECT ` + aedColumns + `,
       ` + distanceExpr + ` AS distance_km
FROM aeds
WHERE ST_DWithin(
    geo_point::geography,
    ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
    $3 * 1000
  )`
	if q.PublicOnly {
		query += `
  AND public_use = true`
	}
	query += `
ORDER BY distance_km ASC, id ASC
LIMIT $4 OFFSET $5`

	limit := capLimit(q.Limit)

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) ([]domain.AEDWithDistance, error) {
		rows, err := r.db.Query(ctx, query, q.Lng, q.Lat, q.RadiusKM, limit, q.Offset)
		if err != nil {
			r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
			return nil, err
		}
		defer rows.Close()

		return scanAedsWithDistance(rows)
	})
}

// SortedByDistance orders every record by distance from the origin with
// no radius cutoff, same ordering contract as Nearby.
func (r *AedRepo) SortedByDistance(ctx context.Context, q domain.SortedQuery) ([]domain.AEDWithDistance, error) {
	const op = "postgres.AED.SortedByDistance"

	query := `
SELECT ` + aedColumns + `,
       ` + distanceExpr + ` AS distance_km
FROM aeds
ORDER BY distance_km ASC, id ASC
LIMIT $3 OFFSET $4`

	limit := capLimit(q.Limit)

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) ([]domain.AEDWithDistance, error) {
		rows, err := r.db.Query(ctx, query, q.Lng, q.Lat, limit, q.Offset)
		if err != nil {
			r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
			return nil, err
		}
		defer rows.Close()

		return scanAedsWithDistance(rows)
	})
}

// sortFields whitelists ORDER BY targets; anything else falls back to id.
var sortFields = map[string]bool{"id": true, "name": true, "address": true, "category": true}

func (r *AedRepo) List(ctx context.Context, q domain.ListAedsQuery) ([]domain.AED, int64, error) {
	const op = "postgres.AED.List"

	sortBy := q.SortBy
	if !sortFields[sortBy] {
		sortBy = "id"
	}
	order := "ASC"
	if q.Order == "desc" {
		order = "DESC"
	}
	limit := capLimit(q.Limit)

	// sortBy and order come from whitelists above, never from raw input.
	query := fmt.Sprintf(`
SELECT `+aedColumns+`
FROM aeds
ORDER BY %s %s, id ASC
LIMIT $1 OFFSET $2`, sortBy, order)

	type page struct {
		aeds  []domain.AED
		total int64
	}

	result, err := DoWithResult(ctx, r.ex, op, func(ctx context.Context) (page, error) {
		var p page
		if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM aeds`).Scan(&p.total); err != nil {
			r.logger.Error("db count failed", slog.String("op", op), slog.Any("error", err))
			return p, err
		}

		rows, err := r.db.Query(ctx, query, limit, q.Offset)
		if err != nil {
			r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
			return p, err
		}
		defer rows.Close()

		for rows.Next() {
			var a domain.AED
			if err := scanAed(rows, &a); err != nil {
				return p, err
			}
			p.aeds = append(p.aeds, a)
		}
		return p, rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return result.aeds, result.total, nil
}

func (r *AedRepo) Get(ctx context.Context, id int64) (*domain.AED, error) {
	const op = "postgres.AED.Get"

	query := `
SELECT ` + aedColumns + `
FROM aeds
WHERE id = $1`

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) (*domain.AED, error) {
		var a domain.AED
		if err := scanAed(r.db.QueryRow(ctx, query, id), &a); err != nil {
			return nil, err
		}
		return &a, nil
	})
}

// ReplaceAll swaps the entire dataset inside one transaction: either the
// new import lands completely or the previous data survives untouched.
func (r *AedRepo) ReplaceAll(ctx context.Context, aeds []domain.AED) (int, error) {
	const op = "postgres.AED.ReplaceAll"

	const insertQuery = `
INSERT INTO aeds (name, address, location_detail, latitude, longitude,
                  public_use, allowed_operators, access_persons, category,
                  service_hours, brand, model, remark, geo_point)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
        ST_SetSRID(ST_MakePoint($5, $4), 4326))`

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) (int, error) {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			r.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
			return 0, err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx, `DELETE FROM aeds`); err != nil {
			r.logger.Error("clearing aeds failed", slog.String("op", op), slog.Any("error", err))
			return 0, err
		}

		inserted := 0
		for _, a := range aeds {
			if _, err := tx.Exec(ctx, insertQuery,
				a.Name, a.Address, a.LocationDetail, a.Latitude, a.Longitude,
				a.PublicUse, a.AllowedOperators, a.AccessPersons, a.Category,
				a.ServiceHours, a.Brand, a.Model, a.Remark,
			); err != nil {
				r.logger.Error("insert aed failed", slog.String("op", op), slog.Any("error", err))
				return 0, err
			}
			inserted++
		}

		if err := tx.Commit(ctx); err != nil {
			return 0, err
		}
		return inserted, nil
	})
}

func capLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func scanAed(row pgx.Row, a *domain.AED) error {
	var flagReason *string
	var flaggedAt *time.Time
	err := row.Scan(
		&a.ID, &a.Name, &a.Address, &a.LocationDetail, &a.Latitude, &a.Longitude,
		&a.PublicUse, &a.AllowedOperators, &a.AccessPersons, &a.Category,
		&a.ServiceHours, &a.Brand, &a.Model, &a.Remark, &a.IsFlagged, &flagReason, &flaggedAt,
	)
	if err != nil {
		return err
	}
	if flagReason != nil {
		a.FlagReason = *flagReason
	}
	a.FlaggedAt = flaggedAt
	return nil
}

func scanAedsWithDistance(rows pgx.Rows) ([]domain.AEDWithDistance, error) {
	result := make([]domain.AEDWithDistance, 0, 16)
	for rows.Next() {
		var a domain.AEDWithDistance
		var flagReason *string
		var flaggedAt *time.Time
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Address, &a.LocationDetail, &a.Latitude, &a.Longitude,
			&a.PublicUse, &a.AllowedOperators, &a.AccessPersons, &a.Category,
			&a.ServiceHours, &a.Brand, &a.Model, &a.Remark, &a.IsFlagged, &flagReason, &flaggedAt,
			&a.DistanceKM,
		); err != nil {
			return nil, err
		}
		if flagReason != nil {
			a.FlagReason = *flagReason
		}
		a.FlaggedAt = flaggedAt
		a.DistanceDisplay = domain.FormatDistance(a.DistanceKM)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
