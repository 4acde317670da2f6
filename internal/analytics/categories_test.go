package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/analytics"
	"vetpulse/internal/testsupport"
)

func TestGetTestCategories(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	center := testsupport.CreateTestCenter(t, db, "HVC", "k")

	// Hematology and chemistry volume, plus a code no panel contains.
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "CBC", 30)
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "HCT", 10)
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "GLU", 20)
	testsupport.SeedTestSummary(t, db, center.ID, testsupport.DaysAgo(1), "PANEL-X", 99)

	report, err := analytics.GetTestCategories(db, paramsDays(30))
	require.NoError(t, err)

	// Panels without volume are left out entirely.
	require.Len(t, report.Categories, 2)

	hema := report.Categories[0]
	assert.Equal(t, "Hematology", hema.Category)
	assert.Equal(t, int64(40), hema.Total)
	// Shares are computed over the categorized volume; PANEL-X is invisible.
	assert.Equal(t, 66.67, hema.Percentage)

	chem := report.Categories[1]
	assert.Equal(t, "Chemistry", chem.Category)
	assert.Equal(t, int64(20), chem.Total)
	assert.Equal(t, 33.33, chem.Percentage)
}

func TestGetTestCategoriesEmptyWindow(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	report, err := analytics.GetTestCategories(db, paramsDays(30))
	require.NoError(t, err)

	assert.Empty(t, report.Categories)
}
