package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/pkg/e"
)

type ReportRepo struct {
	db     DB
	ex     *Executor
	logger *slog.Logger
}

func NewReportRepo(db DB, ex *Executor, logger *slog.Logger) *ReportRepo {
	return &ReportRepo{db: db, ex: ex, logger: logger}
}

const reportColumns = `id, aed_id, report_type, description,
       reporter_name, reporter_email, reporter_phone, status, created_at`

// Create inserts the report and flags the referenced AED in the same
// transaction; a retry only ever sees a fully rolled back attempt.
func (r *ReportRepo) Create(ctx context.Context, report *domain.Report) error {
	const op = "postgres.Report.Create"

	const insertQuery = `
INSERT INTO reports (aed_id, report_type, description,
                     reporter_name, reporter_email, reporter_phone, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`

	const flagQuery = `
UPDATE aeds
SET is_flagged = true, flag_reason = $2, flagged_at = NOW()
WHERE id = $1`

	return r.ex.Do(ctx, op, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			r.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		cmd, err := tx.Exec(ctx, flagQuery, report.AedID, string(report.ReportType))
		if err != nil {
			r.logger.Error("flag aed failed", slog.String("op", op), slog.Any("error", err))
			return err
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("aed %d: %w", report.AedID, e.ErrNotFound)
		}

		if report.Status == "" {
			report.Status = domain.StatusPending
		}
		err = tx.QueryRow(ctx, insertQuery,
			report.AedID, string(report.ReportType), report.Description,
			report.ReporterName, report.ReporterEmail, report.ReporterPhone,
			string(report.Status),
		).Scan(&report.ID, &report.CreatedAt)
		if err != nil {
			r.logger.Error("insert report failed", slog.String("op", op), slog.Any("error", err))
			return err
		}

		return tx.Commit(ctx)
	})
}

// List pages reports newest first, optionally filtered by AED, type, and
// status. Filter values are already validated enums; they still bind as
// placeholders, never as concatenated text.
func (r *ReportRepo) List(ctx context.Context, q domain.ListReportsQuery) ([]domain.Report, int64, error) {
	const op = "postgres.Report.List"

	var conds []string
	var args []any
	if q.AedID != 0 {
		args = append(args, q.AedID)
		conds = append(conds, fmt.Sprintf("aed_id = $%d", len(args)))
	}
	if q.ReportType != "" {
		args = append(args, q.ReportType)
		conds = append(conds, fmt.Sprintf("report_type = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "\nWHERE " + strings.Join(conds, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM reports` + where

	limit := capLimit(q.Limit)
	listArgs := append(append([]any{}, args...), limit, q.Offset)
	listQuery := fmt.Sprintf(`
SELECT `+reportColumns+`
FROM reports%s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	type page struct {
		reports []domain.Report
		total   int64
	}

	result, err := DoWithResult(ctx, r.ex, op, func(ctx context.Context) (page, error) {
		var p page
		if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&p.total); err != nil {
			r.logger.Error("db count failed", slog.String("op", op), slog.Any("error", err))
			return p, err
		}

		rows, err := r.db.Query(ctx, listQuery, listArgs...)
		if err != nil {
			r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
			return p, err
		}
		defer rows.Close()

		for rows.Next() {
			var rep domain.Report
			if err := scanReport(rows, &rep); err != nil {
				return p, err
			}
			p.reports = append(p.reports, rep)
		}
		return p, rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return result.reports, result.total, nil
}

func (r *ReportRepo) Get(ctx context.Context, id int64) (*domain.Report, error) {
	const op = "postgres.Report.Get"

	query := `
SELECT ` + reportColumns + `
FROM reports
WHERE id = $1`

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) (*domain.Report, error) {
		var rep domain.Report
		if err := scanReport(r.db.QueryRow(ctx, query, id), &rep); err != nil {
			return nil, err
		}
		return &rep, nil
	})
}

// UpdateStatus performs the single validated mutation a report supports.
// The target status was already checked for enum membership upstream.
func (r *ReportRepo) UpdateStatus(ctx context.Context, id int64, status domain.ReportStatus) (*domain.Report, error) {
	const op = "postgres.Report.UpdateStatus"

	query := `
UPDATE reports
SET status = $2
WHERE id = $1
RETURNING ` + reportColumns

	return DoWithResult(ctx, r.ex, op, func(ctx context.Context) (*domain.Report, error) {
		var rep domain.Report
		if err := scanReport(r.db.QueryRow(ctx, query, id, string(status)), &rep); err != nil {
			return nil, err
		}
		return &rep, nil
	})
}

func scanReport(row interface{ Scan(dest ...any) error }, rep *domain.Report) error {
	var name, email, phone *string
	err := row.Scan(
		&rep.ID, &rep.AedID, &rep.ReportType, &rep.Description,
		&name, &email, &phone, &rep.Status, &rep.CreatedAt,
	)
	if err != nil {
		return err
	}
	if name != nil {
		rep.ReporterName = *name
	}
	if email != nil {
		rep.ReporterEmail = *email
	}
	if phone != nil {
		rep.ReporterPhone = *phone
	}
	return nil
}
