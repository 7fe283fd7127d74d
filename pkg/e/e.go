package e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the stable classification of a failure. Handlers map kinds to
// HTTP statuses; the executor consults them to decide retryability.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInjection
	KindConnection
	KindDatabaseMissing
	KindQueryOrConstraint
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInjection:
		return "injection"
	case KindConnection:
		return "connection"
	case KindDatabaseMissing:
		return "database_missing"
	case KindQueryOrConstraint:
		return "query"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidEnum       = errors.New("invalid enum value")
	ErrInjectionDetected = errors.New("unsafe input detected")
	ErrConnection        = errors.New("storage unavailable")
	ErrDatabaseMissing   = errors.New("database does not exist")
	ErrQueryFailed       = errors.New("query failed")
	ErrInternal          = errors.New("internal error")
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Classify maps a low-level storage failure to a Kind. Matching is
// structural (SQLSTATE classes, net errors) with lowercase substring
// fallbacks, never equality on full driver messages.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return KindNotFound
	case errors.Is(err, ErrInjectionDetected):
		return KindInjection
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidEnum):
		return KindValidation
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrDatabaseMissing):
		return KindDatabaseMissing
	case errors.Is(err, ErrQueryFailed):
		return KindQueryOrConstraint
	case errors.Is(err, context.DeadlineExceeded):
		return KindConnection
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgCode(pgErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}

	return classifyMessage(err.Error())
}

// classifyPgCode buckets by SQLSTATE class so the decision survives
// driver message changes between versions.
func classifyPgCode(code string) Kind {
	if len(code) < 2 {
		return KindUnknown
	}
	switch code[:2] {
	case "08": // connection exceptions
		return KindConnection
	case "3D", "3F": // invalid catalog / schema name
		return KindDatabaseMissing
	case "42": // syntax error or access rule violation
		return KindQueryOrConstraint
	case "22": // data exception, e.g. invalid input syntax
		return KindQueryOrConstraint
	case "23": // integrity constraint violation
		return KindQueryOrConstraint
	case "53": // insufficient resources
		return KindConnection
	case "57": // operator intervention: shutdown, crash recovery
		return KindConnection
	default:
		return KindUnknown
	}
}

func classifyMessage(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "does not exist"):
		return KindDatabaseMissing
	case strings.Contains(m, "connection refused"),
		strings.Contains(m, "server closed the connection"),
		strings.Contains(m, "connection reset"),
		strings.Contains(m, "timeout"),
		strings.Contains(m, "broken pipe"):
		return KindConnection
	case strings.Contains(m, "syntax error"),
		strings.Contains(m, "invalid input syntax"),
		strings.Contains(m, "violates"):
		return KindQueryOrConstraint
	default:
		return KindUnknown
	}
}

// Retryable reports whether the failure is worth another attempt.
// Policy: only connection-class failures retry, everything else
// surfaces immediately.
func Retryable(err error) bool {
	return Classify(err) == KindConnection
}

// WrapError classifies err and rewraps it with the matching sentinel so
// callers can branch with errors.Is without seeing raw driver text.
func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch Classify(err) {
	case KindNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case KindConnection:
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	case KindDatabaseMissing:
		return fmt.Errorf("%s: %w", op, ErrDatabaseMissing)
	case KindQueryOrConstraint:
		return fmt.Errorf("%s: %w", op, ErrQueryFailed)
	case KindValidation, KindInjection:
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}

// UserMessage returns the templated text safe to show a caller.
// Raw driver detail stays in the logs.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindValidation:
		return "invalid request parameters"
	case KindInjection:
		return "request contains unsafe input"
	case KindNotFound:
		return "resource not found"
	case KindConnection:
		return "storage temporarily unavailable, please retry later"
	case KindDatabaseMissing:
		return "the database is not set up correctly"
	case KindQueryOrConstraint:
		return "the request could not be processed"
	default:
		return "an unexpected error occurred"
	}
}
