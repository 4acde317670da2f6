package v1_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/testsupport"
)

func TestCenterSummaryEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	testsupport.SeedDailyMetric(t, db, center.ID, testsupport.DaysAgo(1), 10, 8, 5, 4)

	resp := performJSON(t, app, "GET", "/api/v1/analytics/centers/HVC/summary?days=7", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// The test app runs with caching disabled, so every read is a miss.
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	body := decodeJSON(t, resp)
	daily, ok := body["daily"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(10), daily["total_orders"])

	period, ok := body["period"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), period["days"])
}

func TestCenterSummaryEndpointUnknownCenter(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp := performJSON(t, app, "GET", "/api/v1/analytics/centers/GHOST/summary", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "CENTER_NOT_FOUND", body["code"])
}

func TestAnalyticsRejectsInvalidWindow(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	for _, path := range []string{
		"/api/v1/analytics/summary?days=999",
		"/api/v1/analytics/tests/top?days=-1",
		"/api/v1/analytics/centers/compare?days=abc",
		"/api/v1/analytics/summary?start_date=2026-01-01",
	} {
		resp := performJSON(t, app, "GET", path, nil, nil)
		body := decodeJSON(t, resp)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, path)
		assert.Equal(t, "INVALID_WINDOW", body["code"], path)
	}
}

func TestTestDetailEndpointNotFound(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp := performJSON(t, app, "GET", "/api/v1/analytics/tests/XYZ", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "TEST_NOT_FOUND", body["code"])
}

func TestBreedDetailEndpointNotFound(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp := performJSON(t, app, "GET", "/api/v1/analytics/breeds/Unicornio", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "BREED_NOT_FOUND", body["code"])
}

func TestStaticAnalyticsSegmentsAreNotCaptured(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "CBC", 10)
	testsupport.SeedBreedSummary(t, db, center.ID, testsupport.DaysAgo(1), "Labrador", "Canino", 5)

	// /tests/top and /breeds/top must reach the ranking handlers, not the
	// parameterized detail routes.
	resp := performJSON(t, app, "GET", "/api/v1/analytics/tests/top", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Contains(t, body, "tests")

	resp = performJSON(t, app, "GET", "/api/v1/analytics/breeds/top", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeJSON(t, resp)
	assert.Contains(t, body, "breeds")

	resp = performJSON(t, app, "GET", "/api/v1/analytics/centers/compare", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeJSON(t, resp)
	assert.Contains(t, body, "aggregates")

	resp = performJSON(t, app, "GET", "/api/v1/analytics/tests/categories", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeJSON(t, resp)
	assert.Contains(t, body, "categories")
}

func TestGlobalSummaryEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	testsupport.SeedDailyMetric(t, db, center.ID, testsupport.DaysAgo(1), 10, 8, 5, 4)

	resp := performJSON(t, app, "GET", "/api/v1/analytics/summary", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, float64(1), body["total_centers"])
	assert.Equal(t, float64(10), body["total_orders"])
}

func TestStatsSummaryEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	center := testsupport.CreateTestCenter(t, db, "HVC", "secret")
	testsupport.SeedDailyMetric(t, db, center.ID, testsupport.DaysAgo(1), 10, 8, 5, 4)

	resp := performJSON(t, app, "GET", "/api/v1/kpi/stats/summary", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, float64(1), body["daily_metric_rows"])
}
