package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleview/internal/analyzer"
	"cycleview/internal/api"
	"cycleview/internal/config"
	"cycleview/internal/export"
	"cycleview/internal/models"
)

const testIMEI = "865044073967657"

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	cycles []models.CycleSummary
	err    error
	// emptyDetail serves what a malformed detail response normalizes to
	emptyDetail bool
}

func (f *fakeSource) ListCycles(_ context.Context, _ string, limit int) (*models.CycleList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CycleList{Items: f.cycles, Count: 57, Filters: map[string]any{"limit": float64(limit)}}, nil
}

func (f *fakeSource) GetCycleDetail(_ context.Context, _ string, n int) (*models.CycleDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.emptyDetail {
		return &models.CycleDetail{}, nil
	}
	for _, c := range f.cycles {
		if c.CycleNumber == n {
			return &models.CycleDetail{
				CycleSummary:        c,
				TemperatureDist5Deg: map[string]float64{"25-30": 40, "20-25": 12},
			}, nil
		}
	}
	return nil, &api.TransportError{Op: "detail", StatusCode: http.StatusNotFound}
}

func testCycles() []models.CycleSummary {
	return []models.CycleSummary{
		{
			CycleNumber:        3,
			CycleStartTime:     models.Timestamp{Time: testNow.AddDate(0, 0, -1)},
			CycleDurationHours: models.Float64(20),
			AverageSOH:         models.Float64(75),
			SOHDrop:            models.Float64(6),
			ProtectionCount:    models.CountOf(1),
		},
		{
			CycleNumber:        2,
			CycleStartTime:     models.Timestamp{Time: testNow.AddDate(0, 0, -10)},
			CycleDurationHours: models.Float64(2),
			AverageSOH:         models.Float64(97),
		},
		{
			CycleNumber:        1,
			CycleStartTime:     models.Timestamp{Time: testNow.AddDate(0, -2, 0)},
			CycleDurationHours: models.Float64(2),
			AverageSOH:         models.Float64(98),
		},
	}
}

func newTestServer(t *testing.T, src *fakeSource) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Devices = []string{testIMEI}
	s := New(cfg, src, analyzer.NewFilterer("2006-01-02", time.UTC), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s.Handler(io.Discard)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, &fakeSource{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestDevices(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{}), "/api/devices")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":["865044073967657"]}`, rec.Body.String())
}

func TestUnknownDevice(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles()})
	for _, path := range []string{
		"/api/devices/999/cycles",
		"/api/devices/999/cycles/1",
		"/api/devices/999/export.csv",
	} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestCycles(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles?time=month&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		IMEI    string                `json:"imei"`
		Total   int                   `json:"total"`
		Count   int                   `json:"count"`
		Filters map[string]any        `json:"filters"`
		Cycles  []models.CycleSummary `json:"cycles"`
		Stats   *models.Stats         `json:"stats"`
		Bounds  analyzer.Bounds       `json:"bounds"`
	}
	decode(t, rec, &body)

	assert.Equal(t, testIMEI, body.IMEI)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 57, body.Count)
	assert.Equal(t, float64(10), body.Filters["limit"])
	require.Len(t, body.Cycles, 2)
	assert.Equal(t, 3, body.Cycles[0].CycleNumber)
	require.NotNil(t, body.Stats)
	assert.Equal(t, 2, body.Stats.TotalCycles)
	assert.InDelta(t, 86.0, body.Stats.AvgSOH, 1e-9)
	assert.Equal(t, analyzer.Bounds{MinCycle: 1, MaxCycle: 3, MinDuration: 2, MaxDuration: 20}, body.Bounds)
}

func TestCyclesNoMatches(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles?q=zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stats":null`)
	assert.Contains(t, rec.Body.String(), `"cycles":[]`)
}

func TestBadParams(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles()})
	for _, q := range []string{"time=decade", "minCycle=x", "maxDuration=long", "limit=0", "limit=abc"} {
		rec := get(t, h, "/api/devices/"+testIMEI+"/cycles?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), `"error"`, q)
	}

	rec := get(t, h, "/api/devices/"+testIMEI+"/cycles/3/temperature.svg?resolution=7deg")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamFailure(t *testing.T) {
	h := newTestServer(t, &fakeSource{err: &api.TransportError{Op: "list", StatusCode: http.StatusServiceUnavailable}})
	rec := get(t, h, "/api/devices/"+testIMEI+"/cycles")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"snapshots API unavailable"}`, rec.Body.String())
}

func TestCycleDetail(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles/3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Detail     models.CycleDetail   `json:"detail"`
		Health     *int                 `json:"health"`
		HealthBand string               `json:"healthBand"`
		Anomalies  []models.Anomaly     `json:"anomalies"`
		Previous   *models.CycleSummary `json:"previous"`
	}
	decode(t, rec, &body)

	assert.Equal(t, 3, body.Detail.CycleNumber)
	require.NotNil(t, body.Health)
	// 100 - 12.5 - 12 - 10
	assert.Equal(t, 66, *body.Health)
	assert.Equal(t, analyzer.BandWarning, body.HealthBand)
	assert.Nil(t, body.Previous)

	messages := make([]string, 0, len(body.Anomalies))
	for _, a := range body.Anomalies {
		messages = append(messages, a.Message)
	}
	assert.Equal(t, []string{
		"High SOH drop detected",
		"Low battery health (SOH < 80%)",
		"Protection events triggered",
		"Unusual cycle duration",
	}, messages)
}

func TestCycleDetailPrevious(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles/2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Previous   *models.CycleSummary `json:"previous"`
		Comparison *analyzer.Comparison `json:"comparison"`
	}
	decode(t, rec, &body)
	require.NotNil(t, body.Previous)
	assert.Equal(t, 3, body.Previous.CycleNumber)
	require.NotNil(t, body.Comparison)
	assert.False(t, body.Comparison.SOHDrop.Worse)
}

func TestCycleDetailEmptyUsesRequestedCycle(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles(), emptyDetail: true})

	rec := get(t, h, "/api/devices/"+testIMEI+"/cycles/2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cycle      int                  `json:"cycle"`
		Previous   *models.CycleSummary `json:"previous"`
		Comparison *analyzer.Comparison `json:"comparison"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Cycle)
	require.NotNil(t, body.Previous)
	assert.Equal(t, 3, body.Previous.CycleNumber)
	assert.NotNil(t, body.Comparison)

	rec = get(t, h, "/api/devices/"+testIMEI+"/cycles/2/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="cycle-2-865044073967657.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestCycleRouteRejectsNonNumeric(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportAll(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles()})

	rec := get(t, h, "/api/devices/"+testIMEI+"/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="all-cycles-865044073967657.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, export.Header, records[0])

	rec = get(t, h, "/api/devices/"+testIMEI+"/export.csv?maxCycle=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="all-cycles-865044073967657-filtered-2.csv"`, rec.Header().Get("Content-Disposition"))

	rec = get(t, h, "/api/devices/"+testIMEI+"/export.csv?q=zzz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCycle(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles/2/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="cycle-2-865044073967657.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[1][0])
}

func TestMissingCycleIsBadGateway(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSource{cycles: testCycles()}), "/api/devices/"+testIMEI+"/cycles/99/export.csv")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCharts(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles()})

	rec := get(t, h, "/api/devices/"+testIMEI+"/cycles/3/temperature.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<svg"))
	assert.Less(t, strings.Index(body, ">20-25<"), strings.Index(body, ">25-30<"))

	rec = get(t, h, "/api/devices/"+testIMEI+"/cycles/3/temperature.svg?resolution=20deg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Data")

	rec = get(t, h, "/api/devices/"+testIMEI+"/soh.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "<circle"))
	assert.Contains(t, rec.Body.String(), "<polyline")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeSource{cycles: testCycles()})
	get(t, h, "/health")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cycleview_http_requests_total")
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{
		"q":           {"12"},
		"time":        {"week"},
		"minCycle":    {"5"},
		"maxDuration": {"3.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12", c.SearchQuery)
	assert.Equal(t, models.TimeWeek, c.TimeFilter)
	assert.Equal(t, 5, *c.MinCycleNumber)
	assert.Nil(t, c.MaxCycleNumber)
	assert.Nil(t, c.MinDuration)
	assert.Equal(t, 3.5, *c.MaxDuration)

	c, err = ParseCriteria(url.Values{})
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
