package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/analytics"
	"vetpulse/internal/testsupport"
)

func TestGetTopTests(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	// CBC grows across the halves of the window, GLU shrinks.
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(20), "CBC", 10)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(5), "CBC", 15)
	testsupport.SeedTestSummary(t, db, beta.ID, testsupport.DaysAgo(5), "CBC", 5)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(20), "GLU", 8)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(5), "GLU", 4)

	report, err := analytics.GetTopTests(db, paramsDays(30))
	require.NoError(t, err)
	require.Len(t, report.Tests, 2)

	cbc := report.Tests[0]
	assert.Equal(t, "CBC", cbc.TestCode)
	assert.Equal(t, int64(30), cbc.Total)
	assert.Equal(t, int64(2), cbc.NumCenters)
	assert.Equal(t, 10.0, cbc.AvgPerDay)
	assert.Equal(t, 100.0, cbc.GrowthRate)

	glu := report.Tests[1]
	assert.Equal(t, int64(12), glu.Total)
	assert.Equal(t, -50.0, glu.GrowthRate)
}

func TestGetTopTestsHonorsLimit(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	center := testsupport.CreateTestCenter(t, db, "HVC", "k")

	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "CBC", 30)
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "GLU", 20)
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "ALT", 10)

	report, err := analytics.GetTopTests(db, analytics.NewQueryParams(windowDays(30), 2))
	require.NoError(t, err)

	require.Len(t, report.Tests, 2)
	assert.Equal(t, "CBC", report.Tests[0].TestCode)
	assert.Equal(t, "GLU", report.Tests[1].TestCode)
}

func TestGetTestDetail(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(2), "CBC", 30)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "CBC", 20)
	testsupport.SeedTestSummary(t, db, beta.ID, testsupport.DaysAgo(1), "CBC", 10)

	detail, err := analytics.GetTestDetail(db, "CBC", paramsDays(30))
	require.NoError(t, err)

	assert.Equal(t, int64(60), detail.Total)
	assert.Equal(t, int64(2), detail.NumCenters)
	assert.Equal(t, int64(30), detail.MaxDaily)
	assert.Equal(t, int64(10), detail.MinDaily)
	assert.Equal(t, 20.0, detail.AvgDaily)

	// Two calendar days, chronological, with both centers merged per day.
	require.Len(t, detail.DailyTrend, 2)
	assert.Equal(t, int64(30), detail.DailyTrend[0].Count)
	assert.Equal(t, int64(30), detail.DailyTrend[1].Count)

	require.Len(t, detail.ByCenter, 2)
	assert.Equal(t, "ALFA", detail.ByCenter[0].Code)
	assert.Equal(t, 83.33, detail.ByCenter[0].Percentage)
	assert.Equal(t, 16.67, detail.ByCenter[1].Percentage)
}

func TestGetTestDetailUnknownCode(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	_, err := analytics.GetTestDetail(db, "XYZ", paramsDays(30))

	var notFound *analytics.TestNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "XYZ", notFound.Code)
}

func TestGetCenterTests(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	// CBC runs at both centers; CORT only at ALFA.
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(2), "CBC", 12)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "CBC", 8)
	testsupport.SeedTestSummary(t, db, beta.ID, testsupport.DaysAgo(1), "CBC", 40)
	testsupport.SeedTestSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "CORT", 3)

	report, err := analytics.GetCenterTests(db, "ALFA", paramsDays(30))
	require.NoError(t, err)
	require.Len(t, report.Tests, 2)

	cbc := report.Tests[0]
	assert.Equal(t, "CBC", cbc.TestCode)
	assert.Equal(t, int64(20), cbc.Total)
	assert.Equal(t, int64(2), cbc.DaysRequested)
	assert.Equal(t, int64(40), cbc.GlobalCount)
	assert.Equal(t, int64(1), cbc.OtherCenters)
	assert.False(t, cbc.IsUnique)

	cort := report.Tests[1]
	assert.Equal(t, "CORT", cort.TestCode)
	assert.True(t, cort.IsUnique)
	assert.Equal(t, int64(0), cort.GlobalCount)

	assert.Equal(t, int64(23), report.TotalTests)
	assert.Equal(t, int64(1), report.UniqueTests)
}
