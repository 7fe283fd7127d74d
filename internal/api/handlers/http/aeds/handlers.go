package aeds

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mythic3011/AED-Api/internal/domain"
	"github.com/mythic3011/AED-Api/pkg/sqlguard"
	"github.com/mythic3011/AED-Api/pkg/validator"
)

type AedFinder interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.AEDWithDistance, error)
	SortedByDistance(ctx context.Context, q domain.SortedQuery) ([]domain.AEDWithDistance, error)
	List(ctx context.Context, q domain.ListAedsQuery) (*domain.AedPage, error)
	Get(ctx context.Context, id int64) (*domain.AED, error)
}

type ReportFiler interface {
	Create(ctx context.Context, aedID int64, req domain.CreateReportRequest) (*domain.Report, error)
	List(ctx context.Context, q domain.ListReportsQuery) (*domain.ReportPage, error)
}

type Handler struct {
	logger  *slog.Logger
	Aeds    AedFinder
	Reports ReportFiler
}

func NewHandler(logger *slog.Logger, aeds AedFinder, reports ReportFiler) *Handler {
	return &Handler{
		logger:  logger,
		Aeds:    aeds,
		Reports: reports,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

// nearbySchema bounds every query parameter before anything touches
// storage. Unknown parameters are ignored, bad values reject the call.
var nearbySchema = validator.Schema{
	"lat":         {Kind: validator.KindCoordinate, Required: true},
	"lng":         {Kind: validator.KindCoordinate, Required: true},
	"radius_km":   {Kind: validator.KindNumeric, Min: validator.Bound(0.001), Max: validator.Bound(100), Default: "1"},
	"limit":       {Kind: validator.KindInteger, Min: validator.Bound(1), Max: validator.Bound(200), Default: "50"},
	"offset":      {Kind: validator.KindInteger, Min: validator.Bound(0), Default: "0"},
	"public_only": {Kind: validator.KindEnum, Enum: []string{"true", "false"}, Default: "false"},
}

func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("Nearby", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	params, err := validator.SanitizeParams(nearbySchema, queryMap(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := domain.NearbyQuery{
		Lat:        params["lat"].(float64),
		Lng:        params["lng"].(float64),
		RadiusKM:   params["radius_km"].(float64),
		Limit:      params["limit"].(int),
		Offset:     params["offset"].(int),
		PublicOnly: params["public_only"] == "true",
	}

	aeds, err := h.Aeds.Nearby(r.Context(), q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("nearby search done",
		slog.Float64("lat", q.Lat),
		slog.Float64("lng", q.Lng),
		slog.Float64("radius_km", q.RadiusKM),
		slog.Int("count", len(aeds)),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"aeds":   aeds,
		"count":  len(aeds),
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

var sortedSchema = validator.Schema{
	"lat":    {Kind: validator.KindCoordinate, Required: true},
	"lng":    {Kind: validator.KindCoordinate, Required: true},
	"limit":  {Kind: validator.KindInteger, Min: validator.Bound(1), Max: validator.Bound(200), Default: "50"},
	"offset": {Kind: validator.KindInteger, Min: validator.Bound(0), Default: "0"},
}

func (h *Handler) SortedByLocation(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("SortedByLocation", slog.String("query", r.URL.RawQuery))

	params, err := validator.SanitizeParams(sortedSchema, queryMap(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := domain.SortedQuery{
		Lat:    params["lat"].(float64),
		Lng:    params["lng"].(float64),
		Limit:  params["limit"].(int),
		Offset: params["offset"].(int),
	}

	aeds, err := h.Aeds.SortedByDistance(r.Context(), q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"aeds":   aeds,
		"count":  len(aeds),
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

var listSchema = validator.Schema{
	"limit":   {Kind: validator.KindInteger, Min: validator.Bound(1), Max: validator.Bound(200), Default: "50"},
	"offset":  {Kind: validator.KindInteger, Min: validator.Bound(0), Default: "0"},
	"sort_by": {Kind: validator.KindEnum, Enum: []string{"id", "name", "address", "category"}, Default: "id"},
	"order":   {Kind: validator.KindEnum, Enum: []string{"asc", "desc"}, Default: "asc"},
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("List", slog.String("query", r.URL.RawQuery))

	params, err := validator.SanitizeParams(listSchema, queryMap(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page, err := h.Aeds.List(r.Context(), domain.ListAedsQuery{
		Limit:  params["limit"].(int),
		Offset: params["offset"].(int),
		SortBy: params["sort_by"].(string),
		Order:  params["order"].(string),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	aed, err := h.Aeds.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Debug("aed fetched", slog.Int64("id", id))
	h.writeJSON(w, http.StatusOK, aed)
}

// CreateReport files an issue against the AED in the path. Free-text
// fields pass through the injection guard and are rejected outright on
// a hit, never rewritten.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req domain.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.Warn("invalid JSON", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := validator.ValidateStruct(req); err != nil {
		l.Warn("report validation failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := sqlguard.CheckAll(map[string]string{
		"description":    req.Description,
		"reporter_name":  req.ReporterName,
		"reporter_email": req.ReporterEmail,
		"reporter_phone": req.ReporterPhone,
	}); err != nil {
		h.handleError(w, r, err)
		return
	}

	report, err := h.Reports.Create(r.Context(), id, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("report filed",
		slog.Int64("aed_id", id),
		slog.Int64("report_id", report.ID),
		slog.String("type", string(report.ReportType)),
	)
	h.writeJSON(w, http.StatusCreated, report)
}

var aedReportsSchema = validator.Schema{
	"limit":  {Kind: validator.KindInteger, Min: validator.Bound(1), Max: validator.Bound(200), Default: "50"},
	"offset": {Kind: validator.KindInteger, Min: validator.Bound(0), Default: "0"},
	"status": {Kind: validator.KindEnum, Enum: []string{"pending", "investigating", "resolved", "rejected"}},
}

// ListReports returns the reports filed against one AED.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	params, err := validator.SanitizeParams(aedReportsSchema, queryMap(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	q := domain.ListReportsQuery{
		AedID:  id,
		Limit:  params["limit"].(int),
		Offset: params["offset"].(int),
	}
	if status, ok := params["status"].(string); ok {
		q.Status = status
	}

	page, err := h.Reports.List(r.Context(), q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, page)
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
