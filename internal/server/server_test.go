package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodaudit/floodaudit/internal/cache"
	"github.com/floodaudit/floodaudit/internal/dataset"
	"github.com/floodaudit/floodaudit/internal/loader"
	"github.com/floodaudit/floodaudit/internal/model"
	"github.com/floodaudit/floodaudit/internal/prepare"
	"github.com/floodaudit/floodaudit/internal/session"
)

func rawProject(id, region, island, contractor, cost, budget, year string) model.RawRecord {
	return model.RawRecord{
		ProjectID:                 id,
		ProjectName:               "Flood Control " + id,
		Contractor:                contractor,
		Region:                    region,
		Province:                  "Province " + id,
		TypeOfWork:                "Construction of Flood Mitigation Structure",
		MainIsland:                island,
		ContractCost:              cost,
		ApprovedBudgetForContract: budget,
		StartDate:                 "2023-01-10",
		ActualCompletionDate:      "2023-07-09",
		FundingYear:               year,
		ProjectLatitude:           "10.3",
		ProjectLongitude:          "123.9",
	}
}

func testRecords() []model.RawRecord {
	return []model.RawRecord{
		rawProject("P-001", "Region VII", "Visayas", "Alpha Builders", "995000", "1000000", "2023"),
		rawProject("P-002", "NCR", "Luzon", "Beta Corp", "450000", "600000", "2023"),
		rawProject("P-003", "Region VII", "Visayas", "Alpha Builders", "120000", "200000", "2024"),
		rawProject("P-004", "Region XI", "Mindanao", "Gamma Inc", "80000", "100000", "2022"),
		rawProject("P-005", "NCR", "Luzon", "Beta Corp", "300000", "310000", "2020"),
	}
}

func staticLoader(records []model.RawRecord) loader.LoadFunc {
	return func(_ context.Context, path string, _ loader.Options) (*model.RawTable, error) {
		return &model.RawTable{Source: path, Records: records}, nil
	}
}

func newTestServer(t *testing.T, tables *loader.Cache, path string, opts Options) *httptest.Server {
	t.Helper()
	views, err := cache.New(64)
	require.NoError(t, err)
	data := dataset.New(path, tables, prepare.DefaultOptions())
	s := New(data, session.NewManager(time.Hour), views, nil, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newDataServer(t *testing.T) *httptest.Server {
	t.Helper()
	tables := loader.NewCacheWith(loader.Options{}, staticLoader(testRecords()))
	return newTestServer(t, tables, "projects.csv", Options{})
}

func do(t *testing.T, method, url string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newDataServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestProjectsFiltered(t *testing.T) {
	ts := newDataServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[projectsResponse](t, resp)
	// P-005 falls in an excluded funding year.
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 4, all.Count)

	resp = do(t, http.MethodGet, ts.URL+"/api/projects?region=Region+VII&year_min=2024", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[projectsResponse](t, resp)
	assert.Equal(t, 4, got.Total)
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "P-003", got.Projects[0].ProjectID)

	resp = do(t, http.MethodGet, ts.URL+"/api/projects?limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[projectsResponse](t, resp)
	require.Len(t, page.Projects, 2)
	assert.Equal(t, "P-002", page.Projects[0].ProjectID)
}

func TestFilterOptionsIgnoreCriteria(t *testing.T) {
	ts := newDataServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/filters?region=NCR", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var opts struct {
		Regions []string `json:"regions"`
		YearMin int      `json:"year_min"`
		YearMax int      `json:"year_max"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
	assert.Equal(t, []string{"NCR", "Region VII", "Region XI"}, opts.Regions)
	assert.Equal(t, 2022, opts.YearMin)
	assert.Equal(t, 2024, opts.YearMax)
}

func TestSummaryAndCounts(t *testing.T) {
	ts := newDataServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum struct {
		ProjectsFound   int `json:"projects_found"`
		FlaggedProjects int `json:"flagged_projects"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 4, sum.ProjectsFound)
	assert.Equal(t, 1, sum.FlaggedProjects)

	resp = do(t, http.MethodGet, ts.URL+"/api/counts/Region?top=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counts []struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counts))
	require.Len(t, counts, 1)
	assert.Equal(t, "Region VII", counts[0].Value)
	assert.Equal(t, 2, counts[0].Count)
}

func TestErrorStatuses(t *testing.T) {
	ts := newDataServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"bad year", "/api/summary?year_min=abc", http.StatusBadRequest},
		{"unknown field", "/api/counts/Nope", http.StatusBadRequest},
		{"bins out of range", "/api/histogram?bins=0", http.StatusBadRequest},
		{"bad log flag", "/api/histogram?log=maybe", http.StatusBadRequest},
		{"unknown session", "/api/summary?session=missing", http.StatusNotFound},
		{"get unknown session", "/api/sessions/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.URL+tt.path, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			assert.Equal(t, tt.status, body.Status)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestMissingDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	ts := newTestServer(t, loader.NewCache(loader.Options{}), path, Options{})

	resp := do(t, http.MethodGet, ts.URL+"/api/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	ts := newDataServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[session.Session](t, resp)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, session.DefaultMapView(), sess.State.Map)

	resp = do(t, http.MethodPut, ts.URL+"/api/sessions/"+sess.ID, `{"criteria":{"regions":["NCR"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[session.Session](t, resp)
	assert.Equal(t, []string{"NCR"}, updated.State.Criteria.Regions)
	assert.Equal(t, session.DefaultMapView(), updated.State.Map)

	resp = do(t, http.MethodGet, ts.URL+"/api/projects?session="+sess.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[projectsResponse](t, resp)
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "P-002", got.Projects[0].ProjectID)

	resp = do(t, http.MethodPut, ts.URL+"/api/sessions/"+sess.ID, `{"map":{"lat":120,"lon":0,"zoom":5}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, ts.URL+"/api/sessions/"+sess.ID, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadCSV(t *testing.T) {
	ts := newDataServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/projects.csv?main_island=Visayas", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "flood_control_projects.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ProjectId", records[0][0])
	assert.Equal(t, "P-001", records[1][0])
	assert.Equal(t, "P-003", records[2][0])
}

func TestDownloadBinaryFormats(t *testing.T) {
	ts := newDataServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/projects.xlsx", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodGet, ts.URL+"/api/projects.shp.zip", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "flood_control_projects.shp.zip")
}

func TestGeoJSONAndLayers(t *testing.T) {
	ts := newDataServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/map?region=NCR", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 1)

	resp = do(t, http.MethodGet, ts.URL+"/api/layers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	layers := decode[map[string]json.RawMessage](t, resp)
	assert.Contains(t, layers, "view")
	assert.Contains(t, layers, "tile_layers")
	assert.Contains(t, layers, "susceptibility")
}

func TestDashboard(t *testing.T) {
	ts := newDataServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]json.RawMessage](t, resp)
	for _, k := range []string{"summary", "by_island", "by_region", "by_type_of_work", "contractors",
		"cost_histogram", "benford", "bid_variance", "quality"} {
		assert.Contains(t, body, k)
	}
}

func TestReloadBumpsVersion(t *testing.T) {
	ts := newDataServer(t)
	do(t, http.MethodGet, ts.URL+"/api/summary", "")

	resp := do(t, http.MethodPost, ts.URL+"/api/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[reloadResponse](t, resp)
	assert.Equal(t, uint64(2), got.Version)
	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, "projects.csv", got.Source)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newDataServer(t)
	do(t, http.MethodGet, ts.URL+"/api/summary", "")

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, err := sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	out := sb.String()
	assert.Contains(t, out, "floodaudit_http_requests_total")
	assert.Contains(t, out, `route="/api/summary"`)
	assert.Contains(t, out, "floodaudit_dataset_rows 4")
}

func TestRateLimit(t *testing.T) {
	tables := loader.NewCacheWith(loader.Options{}, staticLoader(testRecords()))
	ts := newTestServer(t, tables, "projects.csv", Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/legend", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/legend", "").StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/api/legend", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// Health sits outside the limited group.
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/health", "").StatusCode)
}
