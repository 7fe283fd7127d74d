package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/internal/service"
	"github.com/mythic3011/AED-Api/internal/storage/redis"
)

// JobSource is the consuming side of the refresh queue.
type JobSource interface {
	BRPop(ctx context.Context, timeout time.Duration) (domain.RefreshJob, error)
}

// RefreshWorker drains the refresh queue and runs dataset imports one
// at a time. Imports replace the whole table, so running them
// concurrently would just make the last one win.
type RefreshWorker struct {
	queue   JobSource
	refresh service.RefreshService
	logger  *slog.Logger
	timeout time.Duration
}

func NewRefreshWorker(queue JobSource, refresh service.RefreshService, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{
		queue:   queue,
		refresh: refresh,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

func (w *RefreshWorker) Run(ctx context.Context) {
	w.logger.Info("refresh worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("refresh worker stopped")
			return
		default:
		}

		job, err := w.queue.BRPop(ctx, w.timeout)
		if err != nil {
			if errors.Is(err, redis.ErrQueueEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error("refresh queue read failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.timeout):
			}
			continue
		}

		w.process(ctx, job)
	}
}

func (w *RefreshWorker) process(ctx context.Context, job domain.RefreshJob) {
	start := time.Now()

	result, err := w.refresh.Run(ctx, job)
	if err != nil {
		w.logger.Error("refresh job failed",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("refresh job completed",
		slog.String("job_id", job.ID),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Duration("latency", time.Since(start)),
	)
}
