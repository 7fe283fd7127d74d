package aeds_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3011/AED-Api/internal/api/handlers/http/aeds"
	"github.com/mythic3011/AED-Api/internal/domain"
	mock_service "github.com/mythic3011/AED-Api/internal/service/mocks"
	"github.com/mythic3011/AED-Api/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func addChiURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body=%s", rr.Body.String())
	return out
}

func newHandler(t *testing.T) (*aeds.Handler, *mock_service.MockAedService, *mock_service.MockReportService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	aedSvc := mock_service.NewMockAedService(ctrl)
	reportSvc := mock_service.NewMockReportService(ctrl)
	return aeds.NewHandler(newTestLogger(), aedSvc, reportSvc), aedSvc, reportSvc
}

func TestNearby_OK(t *testing.T) {
	t.Parallel()

	h, aedSvc, _ := newHandler(t)

	aedSvc.EXPECT().
		Nearby(gomock.Any(), domain.NearbyQuery{
			Lat: 22.3193, Lng: 114.1694, RadiusKM: 1, Limit: 50, Offset: 0,
		}).
		Return([]domain.AEDWithDistance{
			{AED: domain.AED{ID: 3, Name: "Closest"}, DistanceKM: 0.05, DistanceDisplay: "~50 m"},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aeds/nearby?lat=22.3193&lng=114.1694", nil)
	rr := httptest.NewRecorder()

	h.Nearby(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeJSON[map[string]any](t, rr)
	assert.EqualValues(t, 1, got["count"])
}

func TestNearby_MissingLat_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aeds/nearby?lng=114.1694", nil)
	rr := httptest.NewRecorder()

	h.Nearby(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	got := decodeJSON[map[string]string](t, rr)
	assert.Contains(t, got["error"], "lat")
}

func TestNearby_BadParams_400(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		query string
	}{
		{"latitude out of range", "lat=91&lng=114.1694"},
		{"longitude out of range", "lat=22.3&lng=180.5"},
		{"injection in coordinate", "lat=22.3%3B%20DROP%20TABLE%20aeds&lng=114.1694"},
		{"radius zero", "lat=22.3&lng=114.1&radius_km=0"},
		{"radius too large", "lat=22.3&lng=114.1&radius_km=101"},
		{"limit above cap", "lat=22.3&lng=114.1&limit=201"},
		{"negative offset", "lat=22.3&lng=114.1&offset=-1"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// service must never see an invalid query
			h, _, _ := newHandler(t)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/aeds/nearby?"+tc.query, nil)
			rr := httptest.NewRecorder()

			h.Nearby(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestNearby_StorageUnavailable_503(t *testing.T) {
	t.Parallel()

	h, aedSvc, _ := newHandler(t)

	aedSvc.EXPECT().
		Nearby(gomock.Any(), gomock.Any()).
		Return(nil, e.WrapError(context.Background(), "postgres.AED.Nearby", e.ErrConnection))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aeds/nearby?lat=22.3193&lng=114.1694", nil)
	rr := httptest.NewRecorder()

	h.Nearby(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	got := decodeJSON[map[string]string](t, rr)
	assert.Equal(t, "storage temporarily unavailable, please retry later", got["error"])
}

func TestGet_InvalidID_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)

	req := addChiURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/aeds/abc", nil), "id", "abc")
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGet_Unknown_404(t *testing.T) {
	t.Parallel()

	h, aedSvc, _ := newHandler(t)

	aedSvc.EXPECT().Get(gomock.Any(), int64(9999)).Return(nil, e.ErrNotFound)

	req := addChiURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/aeds/9999", nil), "id", "9999")
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	got := decodeJSON[map[string]string](t, rr)
	assert.Equal(t, "resource not found", got["error"])
}

func TestCreateReport_OK(t *testing.T) {
	t.Parallel()

	h, _, reportSvc := newHandler(t)

	want := domain.CreateReportRequest{
		ReportType:  "damaged",
		Description: "pads missing",
	}
	reportSvc.EXPECT().
		Create(gomock.Any(), int64(42), want).
		Return(&domain.Report{ID: 7, AedID: 42, ReportType: domain.ReportDamaged, Status: domain.StatusPending}, nil)

	body := `{"report_type":"damaged","description":"pads missing"}`
	req := addChiURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/aeds/42/report", bytes.NewBufferString(body)),
		"id", "42")
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.CreateReport(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	got := decodeJSON[domain.Report](t, rr)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestCreateReport_BadType_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)

	body := `{"report_type":"broken","description":"pads missing"}`
	req := addChiURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/aeds/42/report", bytes.NewBufferString(body)),
		"id", "42")
	rr := httptest.NewRecorder()

	h.CreateReport(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateReport_InjectionRejected_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)
	// the guard rejects before the service is reached

	body := `{"report_type":"damaged","description":"x'; DROP TABLE reports; --"}`
	req := addChiURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/aeds/42/report", bytes.NewBufferString(body)),
		"id", "42")
	rr := httptest.NewRecorder()

	h.CreateReport(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	got := decodeJSON[map[string]string](t, rr)
	assert.Equal(t, "request contains unsafe input", got["error"])
	assert.NotContains(t, rr.Body.String(), "DROP TABLE")
}

func TestCreateReport_UnknownAed_404(t *testing.T) {
	t.Parallel()

	h, _, reportSvc := newHandler(t)

	reportSvc.EXPECT().
		Create(gomock.Any(), int64(9999), gomock.Any()).
		Return(nil, e.ErrNotFound)

	body := `{"report_type":"missing","description":"cabinet is empty"}`
	req := addChiURLParam(
		httptest.NewRequest(http.MethodPost, "/api/v1/aeds/9999/report", bytes.NewBufferString(body)),
		"id", "9999")
	rr := httptest.NewRecorder()

	h.CreateReport(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListReports_ForAed(t *testing.T) {
	t.Parallel()

	h, _, reportSvc := newHandler(t)

	reportSvc.EXPECT().
		List(gomock.Any(), domain.ListReportsQuery{AedID: 42, Limit: 50, Offset: 0}).
		Return(&domain.ReportPage{
			Reports: []domain.Report{{ID: 7, AedID: 42}},
			Total:   1, Limit: 50,
		}, nil)

	req := addChiURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/aeds/42/reports", nil), "id", "42")
	rr := httptest.NewRecorder()

	h.ListReports(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeJSON[domain.ReportPage](t, rr)
	assert.Equal(t, int64(1), got.Total)
}
