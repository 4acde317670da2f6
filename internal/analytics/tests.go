package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"vetpulse/internal/centers"
)

// TestNotFoundError signals a test code with no recorded activity in the window
type TestNotFoundError struct {
	Code string
}

func (e *TestNotFoundError) Error() string {
	return fmt.Sprintf("no data for test code: %s", e.Code)
}

// NewTestNotFoundError creates a new TestNotFoundError
func NewTestNotFoundError(code string) *TestNotFoundError {
	return &TestNotFoundError{Code: code}
}

// TopTest is one row of the network-wide test ranking.
type TopTest struct {
	TestCode   string  `json:"test_code"`
	TestName   string  `json:"test_name"`
	Total      int64   `json:"total"`
	NumCenters int64   `json:"num_centers"`
	AvgPerDay  float64 `json:"avg_per_day"`
	GrowthRate float64 `json:"growth_rate"`
}

// TopTestsReport ranks tests by request volume across all centers.
type TopTestsReport struct {
	Period Period    `json:"period"`
	Tests  []TopTest `json:"tests"`
}

// GetTopTests ranks tests across the network by total request volume.
// AvgPerDay averages over the daily rows a test actually appears in, so a
// test requested by one center every day and one requested network-wide
// for a week are both represented fairly.
func GetTopTests(db *gorm.DB, params QueryParams) (*TopTestsReport, error) {
	window := params.Window
	report := &TopTestsReport{Period: PeriodFromWindow(window)}

	query := `
    SELECT
        test_code,
        MAX(test_name) as test_name,
        SUM(count) as total,
        COUNT(DISTINCT center_id) as num_centers,
        AVG(count) as avg_per_day
    FROM test_summaries
    WHERE date >= ?
    GROUP BY test_code
    ORDER BY total DESC
    LIMIT ?
    `
	if err := db.Raw(query, window.Since, params.Limit).Scan(&report.Tests).Error; err != nil {
		return nil, fmt.Errorf("error fetching top tests: %w", err)
	}

	mid := window.Midpoint()
	for i := range report.Tests {
		report.Tests[i].AvgPerDay = Round2(report.Tests[i].AvgPerDay)
		first, second, err := halvesOfWindow(db, "test_summaries", "count",
			"AND test_code = ?", window.Since, mid, report.Tests[i].TestCode)
		if err != nil {
			return nil, err
		}
		report.Tests[i].GrowthRate = GrowthRate(first, second)
	}

	return report, nil
}

// TestCenterShare is one center's share of a test's network volume.
type TestCenterShare struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// TestDetail is the full report for one test code.
type TestDetail struct {
	Period     Period            `json:"period"`
	TestCode   string            `json:"test_code"`
	TestName   string            `json:"test_name"`
	Total      int64             `json:"total"`
	NumCenters int64             `json:"num_centers"`
	MaxDaily   int64             `json:"max_daily"`
	MinDaily   int64             `json:"min_daily"`
	AvgDaily   float64           `json:"avg_daily"`
	DailyTrend []DailyPoint      `json:"daily_trend"`
	ByCenter   []TestCenterShare `json:"by_center"`
}

// GetTestDetail builds the per-code report with the daily trend and the
// breakdown by center.
func GetTestDetail(db *gorm.DB, code string, params QueryParams) (*TestDetail, error) {
	window := params.Window
	detail := &TestDetail{
		Period:   PeriodFromWindow(window),
		TestCode: code,
	}

	var stats struct {
		TestName   string
		Total      int64
		NumCenters int64
		MaxDaily   int64
		MinDaily   int64
		AvgDaily   float64
	}
	query := `
    SELECT
        MAX(test_name) as test_name,
        COALESCE(SUM(count), 0) as total,
        COUNT(DISTINCT center_id) as num_centers,
        COALESCE(MAX(count), 0) as max_daily,
        COALESCE(MIN(count), 0) as min_daily,
        COALESCE(AVG(count), 0) as avg_daily
    FROM test_summaries
    WHERE test_code = ? AND date >= ?
    `
	if err := db.Raw(query, code, window.Since).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("error fetching test detail for %s: %w", code, err)
	}
	if stats.NumCenters == 0 {
		return nil, NewTestNotFoundError(code)
	}
	detail.TestName = stats.TestName
	detail.Total = stats.Total
	detail.NumCenters = stats.NumCenters
	detail.MaxDaily = stats.MaxDaily
	detail.MinDaily = stats.MinDaily
	detail.AvgDaily = Round2(stats.AvgDaily)

	query = `
    SELECT
        strftime('%Y-%m-%d', date) as date,
        SUM(count) as count
    FROM test_summaries
    WHERE test_code = ? AND date >= ?
    GROUP BY strftime('%Y-%m-%d', date)
    ORDER BY date ASC
    `
	if err := db.Raw(query, code, window.Since).Scan(&detail.DailyTrend).Error; err != nil {
		return nil, fmt.Errorf("error fetching test trend for %s: %w", code, err)
	}

	query = `
    SELECT
        c.code as code,
        c.name as name,
        SUM(ts.count) as total
    FROM test_summaries ts
    JOIN centers c ON c.id = ts.center_id
    WHERE ts.test_code = ? AND ts.date >= ?
    GROUP BY c.id
    ORDER BY total DESC
    `
	if err := db.Raw(query, code, window.Since).Scan(&detail.ByCenter).Error; err != nil {
		return nil, fmt.Errorf("error fetching test centers for %s: %w", code, err)
	}
	for i := range detail.ByCenter {
		detail.ByCenter[i].Percentage = Percentage(detail.ByCenter[i].Total, detail.Total)
	}

	return detail, nil
}

// CenterTest is one row of a center's test catalog, with the network context
// needed to spot tests only this center runs.
type CenterTest struct {
	TestCode      string  `json:"test_code"`
	TestName      string  `json:"test_name"`
	Total         int64   `json:"total"`
	DaysRequested int64   `json:"days_requested"`
	AvgPerDay     float64 `json:"avg_per_day"`
	GlobalCount   int64   `json:"global_count"`
	OtherCenters  int64   `json:"other_centers"`
	IsUnique      bool    `json:"is_unique"`
}

// CenterTestsReport is the test catalog of one center over a window.
type CenterTestsReport struct {
	Center      *centers.Center `json:"center"`
	Period      Period          `json:"period"`
	Tests       []CenterTest    `json:"tests"`
	TotalTests  int64           `json:"total_tests"`
	UniqueTests int64           `json:"unique_tests"`
}

// GetCenterTests lists every test a center requested, flagging the ones no
// other center ran in the same window.
func GetCenterTests(db *gorm.DB, code string, params QueryParams) (*CenterTestsReport, error) {
	center, err := centers.GetCenterByCode(db, code)
	if err != nil {
		return nil, err
	}

	window := params.Window
	report := &CenterTestsReport{
		Center: center,
		Period: PeriodFromWindow(window),
	}

	query := `
    SELECT
        test_code,
        MAX(test_name) as test_name,
        SUM(count) as total,
        COUNT(id) as days_requested,
        AVG(count) as avg_per_day
    FROM test_summaries
    WHERE center_id = ? AND date >= ?
    GROUP BY test_code
    ORDER BY total DESC
    `
	if err := db.Raw(query, center.ID, window.Since).Scan(&report.Tests).Error; err != nil {
		return nil, fmt.Errorf("error fetching center tests for %s: %w", code, err)
	}

	for i := range report.Tests {
		t := &report.Tests[i]
		t.AvgPerDay = Round2(t.AvgPerDay)

		var global struct {
			GlobalCount  int64
			OtherCenters int64
		}
		query = `
        SELECT
            COALESCE(SUM(count), 0) as global_count,
            COUNT(DISTINCT center_id) as other_centers
        FROM test_summaries
        WHERE test_code = ? AND date >= ? AND center_id != ?
        `
		if err := db.Raw(query, t.TestCode, window.Since, center.ID).Scan(&global).Error; err != nil {
			return nil, fmt.Errorf("error fetching global context for test %s: %w", t.TestCode, err)
		}
		t.GlobalCount = global.GlobalCount
		t.OtherCenters = global.OtherCenters
		t.IsUnique = global.OtherCenters == 0

		report.TotalTests += t.Total
		if t.IsUnique {
			report.UniqueTests++
		}
	}

	return report, nil
}
