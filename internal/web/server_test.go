package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-schilling/publicworks/internal/config"
	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
	"github.com/tim-schilling/publicworks/internal/web/middleware"
)

func seed(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	ref := func(d model.Domain, code, text string) int64 {
		r := &model.Reference{Domain: d, Code: code, Text: text}
		require.NoError(t, s.CreateReference(ctx, r))
		return r.ID
	}
	status := ref(model.WorkOrderStatus, "OPEN", "Open")
	streets := ref(model.Category, "ST", "Streets")
	parks := ref(model.Category, "PK", "Parks")
	pw := ref(model.Department, "PW", "Public Works")

	for i, o := range []struct {
		code     string
		category int64
		cost     string
	}{
		{"1", streets, "100"},
		{"2", streets, "300"},
		{"3", parks, "50"},
	} {
		p, err := s.GetOrCreateProject(ctx, o.code)
		require.NoError(t, err)
		require.NoError(t, s.CreateWorkOrder(ctx, &model.WorkOrder{
			ProjectID:    p.ID,
			StatusID:     status,
			Created:      time.Date(2023, 1, i+1, 0, 0, 0, 0, time.UTC),
			Updated:      time.Date(2023, 1, i+1, 0, 0, 0, 0, time.UTC),
			CategoryID:   o.category,
			DepartmentID: &pw,
			TotalCost:    decimal.RequireFromString(o.cost),
		}))
	}
	return s
}

func newTestServer(t *testing.T, exportEnabled bool) http.Handler {
	cfg := &config.Config{
		Web:            config.WebOptions{Host: "localhost", Port: 0, AllowedOrigin: []string{"*"}},
		MetricsEnabled: true,
		ExportEnabled:  exportEnabled,
	}
	return NewServer(cfg, seed(t)).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAggregateEndpoint(t *testing.T) {
	h := newTestServer(t, true)
	rec := get(t, h, "/api/aggregate?domain=category&measure=total_cost&order=total_cost&stat=sum")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var body struct {
		Results []struct {
			Label    string `json:"label"`
			Measures map[string]struct {
				Count int    `json:"count"`
				Sum   string `json:"sum"`
			} `json:"measures"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "Streets", body.Results[0].Label)
	assert.Equal(t, 2, body.Results[0].Measures["total_cost"].Count)
	assert.Equal(t, "400", body.Results[0].Measures["total_cost"].Sum)
}

func TestAggregateErrors(t *testing.T) {
	h := newTestServer(t, true)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown domain", "/api/aggregate?domain=street&measure=total_cost", http.StatusBadRequest},
		{"unknown measure", "/api/aggregate?domain=category&measure=salary", http.StatusBadRequest},
		{"zero limit", "/api/aggregate?domain=category&measure=total_cost&limit=0", http.StatusBadRequest},
		{"bad limit", "/api/aggregate?domain=category&measure=total_cost&limit=ten", http.StatusBadRequest},
		{"unknown filter", "/api/aggregate?domain=category&measure=total_cost&department=XX", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestChartEndpoint(t *testing.T) {
	h := newTestServer(t, true)
	rec := get(t, h, "/api/chart?domain=category&range=total_cost&value=avg&limit=1&department=PW")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Chart struct {
			Data struct {
				Labels   []string `json:"labels"`
				Datasets []struct {
					Label string    `json:"label"`
					Data  []float64 `json:"data"`
				} `json:"datasets"`
			} `json:"data"`
		} `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Streets"}, body.Chart.Data.Labels)
	require.Len(t, body.Chart.Data.Datasets, 1)
	assert.Equal(t, "Total cost", body.Chart.Data.Datasets[0].Label)
	assert.Equal(t, []float64{200}, body.Chart.Data.Datasets[0].Data)
}

func TestOptionsAndStats(t *testing.T) {
	h := newTestServer(t, true)

	rec := get(t, h, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"departments":[{"code":"PW","text":"Public Works"}]`)

	rec = get(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Counts[store.TableWorkOrder])
}

func TestExportEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, true), "/api/export?format=csv&domain=category&measure=total_cost")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="category.csv"`)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)

	rec = get(t, newTestServer(t, true), "/api/export?format=pdf&domain=category&measure=total_cost")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, newTestServer(t, false), "/api/export?format=csv&domain=category&measure=total_cost")
	assert.Equal(t, http.StatusNotFound, rec.Code, "route is not registered when export is disabled")
}

func TestMetricsAndCORS(t *testing.T) {
	h := newTestServer(t, true)
	get(t, h, "/api/aggregate?domain=category&measure=total_cost")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "publicworks_query")

	req := httptest.NewRequest(http.MethodOptions, "/api/aggregate", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, req)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))
}
