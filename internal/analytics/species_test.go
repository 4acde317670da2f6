package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpulse/internal/analytics"
	"vetpulse/internal/testsupport"
)

func TestGetSpeciesDistribution(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Canino", 30)
	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(2), "Canino", 20)
	testsupport.SeedSpeciesSummary(t, db, beta.ID, testsupport.DaysAgo(1), "Felino", 25)
	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Ave", 15)
	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Reptil", 10)

	dist, err := analytics.GetSpeciesDistribution(db, paramsDays(30))
	require.NoError(t, err)
	require.Len(t, dist.Species, 4)

	canino := dist.Species[0]
	assert.Equal(t, "Canino", canino.SpeciesName)
	assert.Equal(t, int64(50), canino.Total)
	assert.Equal(t, int64(1), canino.NumCenters)
	assert.Equal(t, 50.0, canino.Percentage)
	assert.Equal(t, 25.0, dist.Species[1].Percentage)

	// Trends cover the top three species only.
	assert.Len(t, dist.Trends, 3)
	assert.Contains(t, dist.Trends, "Canino")
	assert.Contains(t, dist.Trends, "Felino")
	assert.Contains(t, dist.Trends, "Ave")
	assert.NotContains(t, dist.Trends, "Reptil")

	require.Len(t, dist.Trends["Canino"], 2)
	assert.Equal(t, int64(20), dist.Trends["Canino"][0].Count)
	assert.Equal(t, int64(30), dist.Trends["Canino"][1].Count)
}

func TestGetSpeciesTrendsTopThree(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	center := testsupport.CreateTestCenter(t, db, "HVC", "k")

	for i, species := range []string{"Canino", "Felino", "Ave", "Reptil"} {
		testsupport.SeedSpeciesSummary(t, db, center.ID, testsupport.DaysAgo(1), species, 40-10*i)
	}

	trends, err := analytics.GetSpeciesTrends(db, paramsDays(30))
	require.NoError(t, err)

	assert.Len(t, trends.Trends, 3)
	assert.NotContains(t, trends.Trends, "Reptil")
}

func TestGetTopBreeds(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Labrador", "Canino", 30)
	testsupport.SeedBreedSummary(t, db, beta.ID, testsupport.DaysAgo(1), "Labrador", "Canino", 10)
	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Poodle", "Canino", 20)
	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Siames", "Felino", 40)

	t.Run("unfiltered", func(t *testing.T) {
		report, err := analytics.GetTopBreeds(db, "", paramsDays(30))
		require.NoError(t, err)
		require.Len(t, report.Breeds, 3)

		assert.Equal(t, "Labrador", report.Breeds[0].BreedName)
		assert.Equal(t, int64(40), report.Breeds[0].Total)
		assert.Equal(t, int64(2), report.Breeds[0].NumCenters)
		assert.Equal(t, 40.0, report.Breeds[0].Percentage)
		assert.Equal(t, int64(3), report.TotalDifferentBreeds)
	})

	t.Run("species filter narrows the ranking", func(t *testing.T) {
		report, err := analytics.GetTopBreeds(db, "Canino", paramsDays(30))
		require.NoError(t, err)
		require.Len(t, report.Breeds, 2)

		assert.Equal(t, "Canino", report.SpeciesFilter)
		// Percentages are shares of the filtered volume.
		assert.Equal(t, 66.67, report.Breeds[0].Percentage)
		assert.Equal(t, 33.33, report.Breeds[1].Percentage)
		// The catalog size stays network-wide.
		assert.Equal(t, int64(3), report.TotalDifferentBreeds)
	})
}

func TestGetCenterSpeciesProfile(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	// ALFA is cat-heavy compared to the network.
	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Felino", 30)
	testsupport.SeedSpeciesSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Canino", 10)
	testsupport.SeedSpeciesSummary(t, db, beta.ID, testsupport.DaysAgo(1), "Canino", 60)
	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Siames", "Felino", 18)

	profile, err := analytics.GetCenterSpeciesProfile(db, "ALFA", paramsDays(30))
	require.NoError(t, err)
	require.Len(t, profile.Species, 2)

	felino := profile.Species[0]
	assert.Equal(t, "Felino", felino.SpeciesName)
	assert.Equal(t, 75.0, felino.CenterPercentage)
	assert.Equal(t, 30.0, felino.GlobalPercentage)
	assert.Equal(t, 45.0, felino.Difference)

	canino := profile.Species[1]
	assert.Equal(t, 25.0, canino.CenterPercentage)
	assert.Equal(t, 70.0, canino.GlobalPercentage)
	assert.Equal(t, -45.0, canino.Difference)

	require.Len(t, profile.TopBreeds, 1)
	assert.Equal(t, "Siames", profile.TopBreeds[0].BreedName)
}

func TestGetBreedDetail(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	alfa := testsupport.CreateTestCenter(t, db, "ALFA", "k")
	beta := testsupport.CreateTestCenter(t, db, "BETA", "k")

	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(2), "Labrador", "Canino", 12)
	testsupport.SeedBreedSummary(t, db, alfa.ID, testsupport.DaysAgo(1), "Labrador", "Canino", 8)
	testsupport.SeedBreedSummary(t, db, beta.ID, testsupport.DaysAgo(1), "Labrador", "Canino", 4)

	detail, err := analytics.GetBreedDetail(db, "Labrador", paramsDays(30))
	require.NoError(t, err)

	assert.Equal(t, "Canino", detail.SpeciesName)
	assert.Equal(t, int64(24), detail.Total)
	assert.Equal(t, int64(2), detail.NumCenters)
	assert.Equal(t, 8.0, detail.AvgPerDay)

	require.Len(t, detail.ByCenter, 2)
	assert.Equal(t, "ALFA", detail.ByCenter[0].Code)
	assert.Equal(t, 83.33, detail.ByCenter[0].Percentage)

	require.Len(t, detail.DailyTrend, 2)
	assert.Equal(t, int64(12), detail.DailyTrend[0].Count)
	assert.Equal(t, int64(12), detail.DailyTrend[1].Count)
}

func TestGetBreedDetailUnknownBreed(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	_, err := analytics.GetBreedDetail(db, "Unicornio", paramsDays(30))

	var notFound *analytics.BreedNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Unicornio", notFound.Breed)
}
