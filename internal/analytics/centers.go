package analytics

import (
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"

	"vetpulse/internal/centers"
)

// DailyStats aggregates the base counters of one center over a window.
type DailyStats struct {
	DaysWithData   int64   `json:"days_with_data"`
	TotalOrders    int64   `json:"total_orders"`
	TotalResults   int64   `json:"total_results"`
	TotalPets      int64   `json:"total_pets"`
	TotalOwners    int64   `json:"total_owners"`
	AvgDailyOrders float64 `json:"avg_daily_orders"`
	MaxDailyOrders int64   `json:"max_daily_orders"`
	MinDailyOrders int64   `json:"min_daily_orders"`
}

// TestStat is one test entry in a center summary
type TestStat struct {
	TestCode string `json:"test_code"`
	TestName string `json:"test_name"`
	Total    int64  `json:"total"`
}

// SpeciesStat is one species entry in a center summary
type SpeciesStat struct {
	SpeciesName string  `json:"species_name"`
	Total       int64   `json:"total"`
	Percentage  float64 `json:"percentage"`
}

// PerformanceStats averages the optional performance rows of a window.
type PerformanceStats struct {
	AvgProcessingTime float64 `json:"avg_processing_time_minutes"`
	AvgCompletionRate float64 `json:"avg_completion_rate"`
	TypicalPeakHour   int     `json:"typical_peak_hour"`
	MorningOrders     int64   `json:"morning_orders"`
	AfternoonOrders   int64   `json:"afternoon_orders"`
	EveningOrders     int64   `json:"evening_orders"`
	NightOrders       int64   `json:"night_orders"`
}

// ModuleStats rolls up one module's usage across the window.
type ModuleStats struct {
	ModuleName      string  `json:"module_name"`
	TotalOperations int64   `json:"total_operations"`
	AvgActiveUsers  float64 `json:"avg_active_users"`
	RevenueCents    int64   `json:"revenue_cents"`
	RevenueDollars  float64 `json:"revenue_dollars"`
}

// SystemUsageStats rolls up the optional system usage rows of a window.
type SystemUsageStats struct {
	AvgActiveUsers     float64 `json:"avg_active_users"`
	MaxConcurrentUsers int64   `json:"max_concurrent_users"`
	AvgSessionMinutes  float64 `json:"avg_session_minutes"`
	WebAccess          int64   `json:"web_access"`
	MobileAccess       int64   `json:"mobile_access"`
	DesktopAccess      int64   `json:"desktop_access"`
}

// CenterSummary is the full activity report for one center. The extended
// sections are nil when the center never submitted the corresponding block.
type CenterSummary struct {
	Center      *centers.Center   `json:"center"`
	Period      Period            `json:"period"`
	Daily       DailyStats        `json:"daily"`
	TopTests    []TestStat        `json:"top_tests"`
	Species     []SpeciesStat     `json:"species"`
	Performance *PerformanceStats `json:"performance,omitempty"`
	Modules     []ModuleStats     `json:"modules,omitempty"`
	SystemUsage *SystemUsageStats `json:"system_usage,omitempty"`
}

// GetCenterSummary builds the activity report for one center over the window.
func GetCenterSummary(db *gorm.DB, code string, params QueryParams) (*CenterSummary, error) {
	center, err := centers.GetCenterByCode(db, code)
	if err != nil {
		return nil, err
	}

	since := params.Window.Since
	summary := &CenterSummary{
		Center: center,
		Period: PeriodFromWindow(params.Window),
	}

	query := `
    SELECT
        COUNT(id) as days_with_data,
        COALESCE(SUM(total_orders), 0) as total_orders,
        COALESCE(SUM(total_results), 0) as total_results,
        COALESCE(SUM(total_pets), 0) as total_pets,
        COALESCE(SUM(total_owners), 0) as total_owners,
        COALESCE(AVG(total_orders), 0) as avg_daily_orders,
        COALESCE(MAX(total_orders), 0) as max_daily_orders,
        COALESCE(MIN(total_orders), 0) as min_daily_orders
    FROM daily_metrics
    WHERE center_id = ? AND date >= ?
    `
	if err := db.Raw(query, center.ID, since).Scan(&summary.Daily).Error; err != nil {
		return nil, fmt.Errorf("error fetching daily stats for %s: %w", code, err)
	}
	summary.Daily.AvgDailyOrders = Round2(summary.Daily.AvgDailyOrders)

	query = `
    SELECT
        test_code,
        MAX(test_name) as test_name,
        SUM(count) as total
    FROM test_summaries
    WHERE center_id = ? AND date >= ?
    GROUP BY test_code
    ORDER BY total DESC
    LIMIT 10
    `
	if err := db.Raw(query, center.ID, since).Scan(&summary.TopTests).Error; err != nil {
		return nil, fmt.Errorf("error fetching top tests for %s: %w", code, err)
	}

	query = `
    SELECT
        species_name,
        SUM(count) as total
    FROM species_summaries
    WHERE center_id = ? AND date >= ?
    GROUP BY species_name
    ORDER BY total DESC
    `
	if err := db.Raw(query, center.ID, since).Scan(&summary.Species).Error; err != nil {
		return nil, fmt.Errorf("error fetching species stats for %s: %w", code, err)
	}
	for i := range summary.Species {
		summary.Species[i].Percentage = Percentage(summary.Species[i].Total, summary.Daily.TotalPets)
	}

	if summary.Performance, err = getPerformanceStats(db, center.ID, since); err != nil {
		return nil, err
	}
	if summary.Modules, err = getModuleStats(db, center.ID, since); err != nil {
		return nil, err
	}
	if summary.SystemUsage, err = getSystemUsageStats(db, center.ID, since); err != nil {
		return nil, err
	}

	return summary, nil
}

func getPerformanceStats(db *gorm.DB, centerID uint, since any) (*PerformanceStats, error) {
	var result struct {
		Rows            int64
		AvgProcessing   float64
		AvgCompletion   float64
		AvgPeakHour     float64
		MorningOrders   int64
		AfternoonOrders int64
		EveningOrders   int64
		NightOrders     int64
	}

	query := `
    SELECT
        COUNT(id) as rows,
        COALESCE(AVG(avg_order_processing_time), 0) as avg_processing,
        COALESCE(AVG(completion_rate), 0) as avg_completion,
        COALESCE(AVG(peak_hour), 0) as avg_peak_hour,
        COALESCE(SUM(morning_orders), 0) as morning_orders,
        COALESCE(SUM(afternoon_orders), 0) as afternoon_orders,
        COALESCE(SUM(evening_orders), 0) as evening_orders,
        COALESCE(SUM(night_orders), 0) as night_orders
    FROM performance_metrics
    WHERE center_id = ? AND date >= ?
    `
	if err := db.Raw(query, centerID, since).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error fetching performance stats: %w", err)
	}
	if result.Rows == 0 {
		return nil, nil
	}

	return &PerformanceStats{
		AvgProcessingTime: Round2(result.AvgProcessing),
		AvgCompletionRate: Round2(result.AvgCompletion),
		TypicalPeakHour:   int(math.Round(result.AvgPeakHour)),
		MorningOrders:     result.MorningOrders,
		AfternoonOrders:   result.AfternoonOrders,
		EveningOrders:     result.EveningOrders,
		NightOrders:       result.NightOrders,
	}, nil
}

func getModuleStats(db *gorm.DB, centerID uint, since any) ([]ModuleStats, error) {
	var results []ModuleStats

	query := `
    SELECT
        module_name,
        COALESCE(SUM(operations_count), 0) as total_operations,
        COALESCE(AVG(active_users), 0) as avg_active_users,
        COALESCE(SUM(total_revenue), 0) as revenue_cents
    FROM module_metrics
    WHERE center_id = ? AND date >= ?
    GROUP BY module_name
    ORDER BY total_operations DESC
    `
	if err := db.Raw(query, centerID, since).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error fetching module stats: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	for i := range results {
		results[i].AvgActiveUsers = Round2(results[i].AvgActiveUsers)
		results[i].RevenueDollars = Round2(float64(results[i].RevenueCents) / 100)
	}
	return results, nil
}

func getSystemUsageStats(db *gorm.DB, centerID uint, since any) (*SystemUsageStats, error) {
	var result struct {
		Rows               int64
		AvgActiveUsers     float64
		MaxConcurrentUsers int64
		AvgSessionMinutes  float64
		WebAccess          int64
		MobileAccess       int64
		DesktopAccess      int64
	}

	query := `
    SELECT
        COUNT(id) as rows,
        COALESCE(AVG(total_active_users), 0) as avg_active_users,
        COALESCE(MAX(peak_concurrent_users), 0) as max_concurrent_users,
        COALESCE(AVG(avg_session_duration), 0) as avg_session_minutes,
        COALESCE(SUM(web_access_count), 0) as web_access,
        COALESCE(SUM(mobile_access_count), 0) as mobile_access,
        COALESCE(SUM(desktop_access_count), 0) as desktop_access
    FROM system_usage_metrics
    WHERE center_id = ? AND date >= ?
    `
	if err := db.Raw(query, centerID, since).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error fetching system usage stats: %w", err)
	}
	if result.Rows == 0 {
		return nil, nil
	}

	return &SystemUsageStats{
		AvgActiveUsers:     Round2(result.AvgActiveUsers),
		MaxConcurrentUsers: result.MaxConcurrentUsers,
		AvgSessionMinutes:  Round2(result.AvgSessionMinutes),
		WebAccess:          result.WebAccess,
		MobileAccess:       result.MobileAccess,
		DesktopAccess:      result.DesktopAccess,
	}, nil
}

// CenterComparison is one ranked row of the cross-center comparison.
type CenterComparison struct {
	Rank              int      `json:"rank"`
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	City              string   `json:"city"`
	TotalOrders       int64    `json:"total_orders"`
	TotalResults      int64    `json:"total_results"`
	TotalPets         int64    `json:"total_pets"`
	AvgDailyOrders    float64  `json:"avg_daily_orders"`
	ActiveDays        int64    `json:"active_days"`
	GrowthRate        float64  `json:"growth_rate"`
	AvgCompletionRate *float64 `json:"avg_completion_rate,omitempty"`
	AvgProcessingTime *float64 `json:"avg_processing_time,omitempty"`
}

// ComparisonAggregates sums the comparison over the whole network.
type ComparisonAggregates struct {
	TotalOrders   int64   `json:"total_orders"`
	TotalResults  int64   `json:"total_results"`
	TotalPets     int64   `json:"total_pets"`
	AvgGrowthRate float64 `json:"avg_growth_rate"`
}

// CenterComparisonReport ranks every registered center by order volume.
type CenterComparisonReport struct {
	Period        Period               `json:"period"`
	TotalCenters  int64                `json:"total_centers"`
	ActiveCenters int64                `json:"active_centers"`
	Centers       []CenterComparison   `json:"centers"`
	Aggregates    ComparisonAggregates `json:"aggregates"`
}

// CompareCenters ranks all centers by total orders over the window. Ties keep
// the code-alphabetical fetch order, so equal centers rank deterministically.
func CompareCenters(db *gorm.DB, params QueryParams) (*CenterComparisonReport, error) {
	all, err := centers.GetAllCenters(db)
	if err != nil {
		return nil, err
	}
	total, active, err := centers.CountCenters(db)
	if err != nil {
		return nil, err
	}

	window := params.Window
	mid := window.Midpoint()

	report := &CenterComparisonReport{
		Period:        PeriodFromWindow(window),
		TotalCenters:  total,
		ActiveCenters: active,
		Centers:       make([]CenterComparison, 0, len(all)),
	}

	var growthSum float64
	for _, center := range all {
		row := CenterComparison{
			Code: center.Code,
			Name: center.Name,
			City: center.City,
		}

		var daily struct {
			TotalOrders    int64
			TotalResults   int64
			TotalPets      int64
			AvgDailyOrders float64
			ActiveDays     int64
		}
		query := `
        SELECT
            COALESCE(SUM(total_orders), 0) as total_orders,
            COALESCE(SUM(total_results), 0) as total_results,
            COALESCE(SUM(total_pets), 0) as total_pets,
            COALESCE(AVG(total_orders), 0) as avg_daily_orders,
            COUNT(id) as active_days
        FROM daily_metrics
        WHERE center_id = ? AND date >= ?
        `
		if err := db.Raw(query, center.ID, window.Since).Scan(&daily).Error; err != nil {
			return nil, fmt.Errorf("error fetching comparison stats for %s: %w", center.Code, err)
		}
		row.TotalOrders = daily.TotalOrders
		row.TotalResults = daily.TotalResults
		row.TotalPets = daily.TotalPets
		row.AvgDailyOrders = Round2(daily.AvgDailyOrders)
		row.ActiveDays = daily.ActiveDays

		first, second, err := halvesOfWindow(db, "daily_metrics", "total_orders",
			"AND center_id = ?", window.Since, mid, center.ID)
		if err != nil {
			return nil, err
		}
		row.GrowthRate = GrowthRate(first, second)
		growthSum += row.GrowthRate

		var perf struct {
			Rows          int64
			AvgCompletion float64
			AvgProcessing float64
		}
		query = `
        SELECT
            COUNT(id) as rows,
            COALESCE(AVG(completion_rate), 0) as avg_completion,
            COALESCE(AVG(avg_order_processing_time), 0) as avg_processing
        FROM performance_metrics
        WHERE center_id = ? AND date >= ?
        `
		if err := db.Raw(query, center.ID, window.Since).Scan(&perf).Error; err != nil {
			return nil, fmt.Errorf("error fetching comparison performance for %s: %w", center.Code, err)
		}
		if perf.Rows > 0 {
			completion := Round2(perf.AvgCompletion)
			processing := Round2(perf.AvgProcessing)
			row.AvgCompletionRate = &completion
			row.AvgProcessingTime = &processing
		}

		report.Centers = append(report.Centers, row)
		report.Aggregates.TotalOrders += row.TotalOrders
		report.Aggregates.TotalResults += row.TotalResults
		report.Aggregates.TotalPets += row.TotalPets
	}

	sort.SliceStable(report.Centers, func(i, j int) bool {
		return report.Centers[i].TotalOrders > report.Centers[j].TotalOrders
	})
	for i := range report.Centers {
		report.Centers[i].Rank = i + 1
	}

	if len(report.Centers) > 0 {
		report.Aggregates.AvgGrowthRate = Round2(growthSum / float64(len(report.Centers)))
	}

	return report, nil
}
