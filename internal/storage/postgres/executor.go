package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mythic3011/AED-Api/internal/metrics"
	"github.com/mythic3011/AED-Api/pkg/e"
	"github.com/mythic3011/AED-Api/pkg/retry"
)

// Executor wraps a single logical storage call with classification and
// bounded retry. It knows nothing about query semantics: reads are
// naturally idempotent, and write paths run inside a transaction that
// rolls back entirely before any retry, so attempts are independent.
type Executor struct {
	cfg    retry.Config
	logger *slog.Logger
	m      *metrics.Metrics
}

func NewExecutor(cfg retry.Config, logger *slog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{cfg: cfg, logger: logger, m: m}
}

// Do runs fn, retrying with exponential backoff only when the failure
// classifies as a connection error. Everything else propagates
// immediately, already rewrapped by the classifier. After exhausting
// attempts the error carries the attempt count.
func (ex *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := retry.Do(ctx, ex.cfg, func() error {
		callErr := fn(ctx)
		if callErr == nil {
			return nil
		}
		if !e.Retryable(callErr) {
			return retry.NonRetryable(e.WrapError(ctx, op, callErr))
		}
		ex.logger.Warn("retryable storage failure",
			slog.String("op", op),
			slog.Any("error", callErr),
		)
		if ex.m != nil {
			ex.m.QueryRetries.Inc()
		}
		return callErr
	})

	if ex.m != nil {
		ex.m.QuerySeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		ex.m.QueriesTotal.WithLabelValues(op, outcome).Inc()
	}

	if err == nil {
		return nil
	}

	var nonRetryable *retry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return nonRetryable.Err
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		ex.logger.Error("storage call failed after retries",
			slog.String("op", op),
			slog.Int("attempts", exhausted.Attempts),
			slog.Any("error", exhausted.Err),
		)
		return e.WrapError(ctx, op, err)
	}
	return err
}

// DoWithResult is Do for calls that produce a value.
func DoWithResult[T any](ctx context.Context, ex *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := ex.Do(ctx, op, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}
