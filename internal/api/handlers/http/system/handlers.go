package system

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/pkg/e"
)

type StatsGetter interface {
	Summary(ctx context.Context) (*domain.Stats, error)
}

type RefreshEnqueuer interface {
	Enqueue(ctx context.Context, requestedBy string) (domain.RefreshJob, error)
}

// Check pings one dependency; nil error means healthy.
type Check func(ctx context.Context) error

type Handler struct {
	logger  *slog.Logger
	Stats   StatsGetter
	Refresh RefreshEnqueuer
	checks  map[string]Check
}

func NewHandler(logger *slog.Logger, stats StatsGetter, refresh RefreshEnqueuer, checks map[string]Check) *Handler {
	return &Handler{
		logger:  logger,
		Stats:   stats,
		Refresh: refresh,
		checks:  checks,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

// Health reports per-dependency status. The endpoint answers 200 as
// long as the process is serving; degraded dependencies are listed in
// the body for the load balancer to interpret.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.log(r).Warn("health check failed",
				slog.String("component", name),
				slog.Any("error", err),
			)
			components[name] = "unavailable"
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
	})
}

func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	stats, err := h.Stats.Summary(r.Context())
	if err != nil {
		l.Error("stats failed", slog.Any("error", err))
		status := http.StatusInternalServerError
		if e.Classify(err) == e.KindConnection {
			status = http.StatusServiceUnavailable
		}
		h.writeJSON(w, status, map[string]string{"error": e.UserMessage(err)})
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// AdminRefresh queues a dataset re-import and returns 202 right away;
// the worker does the slow part.
func (h *Handler) AdminRefresh(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	job, err := h.Refresh.Enqueue(r.Context(), r.RemoteAddr)
	if err != nil {
		l.Error("refresh enqueue failed", slog.Any("error", err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "refresh queue unavailable",
		})
		return
	}

	l.Info("refresh accepted", slog.String("job_id", job.ID))
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": "queued",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
