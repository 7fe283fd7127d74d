package system_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3011/AED-Api/internal/api/handlers/http/system"
	"github.com/mythic3011/AED-Api/internal/domain"
	mock_service "github.com/mythic3011/AED-Api/internal/service/mocks"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHealth_AllComponentsUp(t *testing.T) {
	t.Parallel()

	checks := map[string]system.Check{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return nil },
	}
	h := system.NewHandler(newTestLogger(), nil, nil, checks)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.Components["postgres"])
}

func TestHealth_DegradedComponentReported(t *testing.T) {
	t.Parallel()

	checks := map[string]system.Check{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}
	h := system.NewHandler(newTestLogger(), nil, nil, checks)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "unavailable", got.Components["redis"])
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestSystemStats_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	stats := mock_service.NewMockStatsService(ctrl)
	stats.EXPECT().Summary(gomock.Any()).Return(&domain.Stats{
		TotalAeds:       1000,
		PublicAeds:      800,
		ReportsByStatus: map[string]int64{"pending": 4},
		ReportsByType:   map[string]int64{"damaged": 3},
	}, nil)

	h := system.NewHandler(newTestLogger(), stats, nil, nil)

	rr := httptest.NewRecorder()
	h.SystemStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var got domain.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(1000), got.TotalAeds)
	assert.Equal(t, int64(4), got.ReportsByStatus["pending"])
}

func TestAdminRefresh_Accepted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	refresh := mock_service.NewMockRefreshService(ctrl)
	refresh.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		Return(domain.RefreshJob{ID: "job-1"}, nil)

	h := system.NewHandler(newTestLogger(), nil, refresh, nil)

	rr := httptest.NewRecorder()
	h.AdminRefresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "job-1", got["job_id"])
	assert.Equal(t, "queued", got["status"])
}

func TestAdminRefresh_QueueDown_503(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	refresh := mock_service.NewMockRefreshService(ctrl)
	refresh.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		Return(domain.RefreshJob{}, errors.New("redis: connection refused"))

	h := system.NewHandler(newTestLogger(), nil, refresh, nil)

	rr := httptest.NewRecorder()
	h.AdminRefresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "redis:")
}
