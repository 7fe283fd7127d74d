package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/pkg/validator"
)

type ReportManager interface {
	List(ctx context.Context, q domain.ListReportsQuery) (*domain.ReportPage, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Report, error)
}

type Handler struct {
	logger  *slog.Logger
	Reports ReportManager
}

func NewHandler(logger *slog.Logger, reports ReportManager) *Handler {
	return &Handler{logger: logger, Reports: reports}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

var listSchema = validator.Schema{
	"aed_id":      {Kind: validator.KindInteger, Min: validator.Bound(1)},
	"report_type": {Kind: validator.KindEnum, Enum: []string{"damaged", "missing", "incorrect_info", "other"}},
	"status":      {Kind: validator.KindEnum, Enum: []string{"pending", "investigating", "resolved", "rejected"}},
	"limit":       {Kind: validator.KindInteger, Min: validator.Bound(1), Max: validator.Bound(200), Default: "50"},
	"offset":      {Kind: validator.KindInteger, Min: validator.Bound(0), Default: "0"},
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("List", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	params, err := validator.SanitizeParams(listSchema, queryMap(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := domain.ListReportsQuery{
		Limit:  params["limit"].(int),
		Offset: params["offset"].(int),
	}
	if aedID, ok := params["aed_id"].(int); ok {
		q.AedID = int64(aedID)
	}
	if reportType, ok := params["report_type"].(string); ok {
		q.ReportType = reportType
	}
	if status, ok := params["status"].(string); ok {
		q.Status = status
	}

	page, err := h.Reports.List(r.Context(), q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("reports listed", slog.Int("count", len(page.Reports)), slog.Int64("total", page.Total))
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	report, err := h.Reports.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// UpdateStatus is the only report mutation. The body carries the target
// status, validated against the enum before the service runs.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateReportStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.Warn("invalid JSON", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	report, err := h.Reports.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("report status updated",
		slog.Int64("report_id", id),
		slog.String("status", req.Status),
	)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.log(r).Warn("invalid id", slog.String("id", idStr))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryMap(r *http.Request) map[string]string {
	values := r.URL.Query()
	m := make(map[string]string, len(values))
	for k := range values {
		m[k] = values.Get(k)
	}
	return m
}
