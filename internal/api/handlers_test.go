package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"co2dash/internal/engine"
	"co2dash/internal/export"
	"co2dash/internal/models"
)

const fixtureCSV = `Country,ISO2,ISO3,Indicator,2000,2001
Testland,TL,TLD,CO2 emissions,100,110
Testland,TL,TLD,CO2 emissions intensities,5,6
Otherland,OL,OLD,CO2 emissions,50,300
Otherland,OL,OLD,CO2 emissions intensities,2,9
Otherland,OL,OLD,CO2 emissions multipliers,1.5,1.7
`

func newTestServer(t *testing.T, load bool) (*echo.Echo, *engine.Dataset) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emission.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o644))

	ds := engine.NewDataset(path)
	if load {
		_, err := ds.Table(context.Background())
		require.NoError(t, err)
	}
	m := NewMetrics(prometheus.NewRegistry())
	return NewServer(NewHandler(ds, 10, "", m), m), ds
}

func get(e *echo.Echo, target string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoadingReturns503(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"loading"}`, rec.Body.String())

	rec = get(e, "/api/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "still loading")
}

func TestGetHealth(t *testing.T) {
	e, _ := newTestServer(t, true)
	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetMeta(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := get(e, "/api/meta")
	require.Equal(t, http.StatusOK, rec.Code)

	meta := decode[models.Meta](t, rec)
	assert.Equal(t, engine.DashboardTitle, meta.Title)
	assert.Equal(t, 2000, meta.YearMin)
	assert.Equal(t, 2001, meta.YearMax)
	assert.Equal(t, 2001, meta.DefaultYear)
	assert.Equal(t, []string{"All", "Otherland", "Testland"}, meta.Countries)
}

func TestGetDashboard(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := get(e, "/api/dashboard?year=2001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/json")

	data := decode[models.DashboardData](t, rec)
	assert.False(t, data.EmptySelection)
	assert.Equal(t, models.Selection{Year: 2001, Country: "All"}, data.Selection)

	require.Len(t, data.GlobalSeries.Data, 2)
	assert.EqualValues(t, 150, data.GlobalSeries.Data[0].Emissions)
	assert.EqualValues(t, 410, data.GlobalSeries.Data[1].Emissions)

	require.Len(t, data.TopEmitters.Data, 2)
	assert.Equal(t, "Otherland", data.TopEmitters.Data[0].Country)
	assert.EqualValues(t, 300, data.TopEmitters.Data[0].Emissions)

	require.Len(t, data.Choropleth.Data, 2)
	var testland models.ChoroplethCell
	for _, cell := range data.Choropleth.Data {
		if cell.ISO3 == "TLD" {
			testland = cell
		}
	}
	assert.False(t, testland.Multipliers.Valid(), "missing multiplier must decode from null")

	assert.Contains(t, rec.Body.String(), `"co2_multipliers":null`)
}

func TestGetDashboard_CountryAndEmpty(t *testing.T) {
	e, _ := newTestServer(t, true)

	data := decode[models.DashboardData](t, get(e, "/api/dashboard?year=2000&country=Testland"))
	require.Len(t, data.Scatter.Data, 1)
	assert.Equal(t, "Testland", data.Scatter.Data[0].Country)

	rec := get(e, "/api/dashboard?year=1900")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode[models.DashboardData](t, rec)
	assert.True(t, data.EmptySelection)
	assert.Empty(t, data.TopEmitters.Data)
	assert.Len(t, data.GlobalSeries.Data, 2)
}

func TestBadYear(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := get(e, "/api/emissions/top?year=twenty")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"year must be an integer"}`, rec.Body.String())
}

func TestGetTopEmitters(t *testing.T) {
	e, _ := newTestServer(t, true)

	type topView struct {
		Selection models.Selection      `json:"selection"`
		Title     string                `json:"title"`
		Data      []models.CountryTotal `json:"data"`
	}
	v := decode[topView](t, get(e, "/api/emissions/top?year=2000&limit=1"))
	require.Len(t, v.Data, 1)
	assert.Equal(t, "Testland", v.Data[0].Country)
	assert.Equal(t, "Top 1 CO₂ Emitting Countries in 2000", v.Title)
}

func TestGetCorrelation(t *testing.T) {
	e, _ := newTestServer(t, true)

	type corrView struct {
		Data models.Correlation `json:"data"`
	}
	v := decode[corrView](t, get(e, "/api/correlation?year=2001"))
	require.Len(t, v.Data.Values, 3)
	assert.EqualValues(t, 1, v.Data.Values[0][0])
	assert.InDelta(t, 1.0, float64(v.Data.Values[0][1]), 1e-9)
	assert.False(t, v.Data.Values[0][2].Valid(), "only one multiplier value")
}

func TestGlobalAndChoroplethViews(t *testing.T) {
	e, _ := newTestServer(t, true)

	global := decode[models.Chart[models.YearTotal]](t, get(e, "/api/emissions/global?year=2000"))
	assert.Len(t, global.Data, 2, "global series ignores the year filter")

	rec := get(e, "/api/multipliers/choropleth?year=2001&country=Otherland")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"iso3":"OLD"`)
	assert.NotContains(t, rec.Body.String(), "TLD")

	rec = get(e, "/api/intensity/scatter?year=2001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"co2_intensities":9`)
}

func TestETag(t *testing.T) {
	e, _ := newTestServer(t, true)

	first := get(e, "/api/dashboard?year=2001")
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)

	again := get(e, "/api/dashboard?year=2001", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, again.Code)
	assert.Empty(t, again.Body.String())

	other := get(e, "/api/dashboard?year=2000", "If-None-Match", tag)
	assert.Equal(t, http.StatusOK, other.Code)
	assert.NotEqual(t, tag, other.Header().Get("ETag"))

	view := get(e, "/api/emissions/top?year=2001")
	cached := get(e, "/api/emissions/top?year=2001", "If-None-Match", view.Header().Get("ETag"))
	assert.Equal(t, http.StatusNotModified, cached.Code)
}

func TestGetTidy(t *testing.T) {
	e, _ := newTestServer(t, true)

	page := decode[models.Page[models.TidyRow]](t, get(e, "/api/tidy?limit=3&offset=1"))
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 3, page.Limit)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "Otherland", page.Data[0].Country)
	assert.Equal(t, 2001, page.Data[0].Year)
	assert.Equal(t, "Testland", page.Data[1].Country)

	filtered := decode[models.Page[models.TidyRow]](t, get(e, "/api/tidy?year=2000&country=Testland"))
	require.Equal(t, 1, filtered.Total)
	assert.False(t, filtered.Data[0].Multipliers.Valid())

	// country alone keeps every year of that country
	byCountry := decode[models.Page[models.TidyRow]](t, get(e, "/api/tidy?country=Testland"))
	require.Equal(t, 2, byCountry.Total)
	for _, row := range byCountry.Data {
		assert.Equal(t, "Testland", row.Country)
	}
	assert.Equal(t, []int{2000, 2001}, []int{byCountry.Data[0].Year, byCountry.Data[1].Year})

	all := decode[models.Page[models.TidyRow]](t, get(e, "/api/tidy?country=All"))
	assert.Equal(t, 4, all.Total)

	past := decode[models.Page[models.TidyRow]](t, get(e, "/api/tidy?offset=50"))
	assert.Empty(t, past.Data)
	assert.Equal(t, 4, past.Total)
}

func TestGetTidyArrow(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := get(e, "/api/tidy.arrow")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ArrowContentType, rec.Header().Get(echo.HeaderContentType))

	r, err := ipc.NewReader(rec.Body)
	require.NoError(t, err)
	defer r.Release()
	require.True(t, r.Next())
	assert.EqualValues(t, 4, r.Record().NumRows())
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)
	get(e, "/api/dashboard")
	get(e, "/api/dashboard?year=1800")

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `co2dash_view_requests_total{view="dashboard"} 2`), body)
	assert.Contains(t, body, "co2dash_empty_selections_total 1")
}

func TestNilMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emission.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o644))
	ds := engine.NewDataset(path)
	_, err := ds.Table(context.Background())
	require.NoError(t, err)

	e := NewServer(NewHandler(ds, 0, "", nil), nil)
	assert.Equal(t, http.StatusOK, get(e, "/api/dashboard").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/metrics").Code)
}
