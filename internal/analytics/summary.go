package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"vetpulse/internal/centers"
)

// GlobalSummary is the combined network overview backing the main dashboard.
type GlobalSummary struct {
	Period        Period         `json:"period"`
	TotalCenters  int64          `json:"total_centers"`
	ActiveCenters int64          `json:"active_centers"`
	TotalOrders   int64          `json:"total_orders"`
	TotalResults  int64          `json:"total_results"`
	TotalPets     int64          `json:"total_pets"`
	TotalOwners   int64          `json:"total_owners"`
	TopTests      []TestStat     `json:"top_tests"`
	Species       []SpeciesShare `json:"species"`
}

// GetGlobalSummary aggregates the whole network over the window.
func GetGlobalSummary(db *gorm.DB, params QueryParams) (*GlobalSummary, error) {
	total, active, err := centers.CountCenters(db)
	if err != nil {
		return nil, err
	}

	window := params.Window
	summary := &GlobalSummary{
		Period:        PeriodFromWindow(window),
		TotalCenters:  total,
		ActiveCenters: active,
	}

	var totals struct {
		TotalOrders  int64
		TotalResults int64
		TotalPets    int64
		TotalOwners  int64
	}
	query := `
    SELECT
        COALESCE(SUM(total_orders), 0) as total_orders,
        COALESCE(SUM(total_results), 0) as total_results,
        COALESCE(SUM(total_pets), 0) as total_pets,
        COALESCE(SUM(total_owners), 0) as total_owners
    FROM daily_metrics
    WHERE date >= ?
    `
	if err := db.Raw(query, window.Since).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("error fetching global totals: %w", err)
	}
	summary.TotalOrders = totals.TotalOrders
	summary.TotalResults = totals.TotalResults
	summary.TotalPets = totals.TotalPets
	summary.TotalOwners = totals.TotalOwners

	query = `
    SELECT
        test_code,
        MAX(test_name) as test_name,
        SUM(count) as total
    FROM test_summaries
    WHERE date >= ?
    GROUP BY test_code
    ORDER BY total DESC
    LIMIT ?
    `
	if err := db.Raw(query, window.Since, params.Limit).Scan(&summary.TopTests).Error; err != nil {
		return nil, fmt.Errorf("error fetching global top tests: %w", err)
	}

	query = `
    SELECT
        species_name,
        SUM(count) as total,
        COUNT(DISTINCT center_id) as num_centers,
        AVG(count) as avg_per_day
    FROM species_summaries
    WHERE date >= ?
    GROUP BY species_name
    ORDER BY total DESC
    `
	if err := db.Raw(query, window.Since).Scan(&summary.Species).Error; err != nil {
		return nil, fmt.Errorf("error fetching global species: %w", err)
	}
	var speciesTotal int64
	for _, s := range summary.Species {
		speciesTotal += s.Total
	}
	for i := range summary.Species {
		summary.Species[i].AvgPerDay = Round2(summary.Species[i].AvgPerDay)
		summary.Species[i].Percentage = Percentage(summary.Species[i].Total, speciesTotal)
	}

	return summary, nil
}

// StatsSummary reports service-wide row counts and the span of stored data.
type StatsSummary struct {
	TotalCenters    int64  `json:"total_centers"`
	ActiveCenters   int64  `json:"active_centers"`
	DailyMetricRows int64  `json:"daily_metric_rows"`
	TestRows        int64  `json:"test_rows"`
	SpeciesRows     int64  `json:"species_rows"`
	BreedRows       int64  `json:"breed_rows"`
	EarliestDate    string `json:"earliest_date"`
	LatestDate      string `json:"latest_date"`
}

// GetStatsSummary counts stored rows per aggregate table. Cheap enough to
// serve unguarded; it exposes volumes, never content.
func GetStatsSummary(db *gorm.DB) (*StatsSummary, error) {
	total, active, err := centers.CountCenters(db)
	if err != nil {
		return nil, err
	}

	summary := &StatsSummary{
		TotalCenters:  total,
		ActiveCenters: active,
	}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"daily_metrics", &summary.DailyMetricRows},
		{"test_summaries", &summary.TestRows},
		{"species_summaries", &summary.SpeciesRows},
		{"breed_summaries", &summary.BreedRows},
	}
	for _, c := range counts {
		query := fmt.Sprintf("SELECT COUNT(id) FROM %s", c.table)
		if err := db.Raw(query).Scan(c.dest).Error; err != nil {
			return nil, fmt.Errorf("error counting %s rows: %w", c.table, err)
		}
	}

	var span struct {
		EarliestDate string
		LatestDate   string
	}
	query := `
    SELECT
        COALESCE(strftime('%Y-%m-%d', MIN(date)), '') as earliest_date,
        COALESCE(strftime('%Y-%m-%d', MAX(date)), '') as latest_date
    FROM daily_metrics
    `
	if err := db.Raw(query).Scan(&span).Error; err != nil {
		return nil, fmt.Errorf("error fetching data span: %w", err)
	}
	summary.EarliestDate = span.EarliestDate
	summary.LatestDate = span.LatestDate

	return summary, nil
}
