package analytics

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

// Round2 rounds to two decimals. Rounding happens once, at the output edge,
// so intermediate math never compounds rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage computes part/total as a percentage rounded to two decimals.
// A zero or negative total yields 0, never an error.
func Percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// GrowthRate compares the two halves of a window. A zero first half yields
// exactly 0: new activity is not reported as infinite growth.
func GrowthRate(firstHalf, secondHalf int64) float64 {
	if firstHalf <= 0 {
		return 0
	}
	return Round2(float64(secondHalf-firstHalf) / float64(firstHalf) * 100)
}

// halvesOfWindow sums a counter column on either side of the window midpoint.
// The extra WHERE fragment scopes the sum, e.g. to one center or one test code.
func halvesOfWindow(db *gorm.DB, table, column, scopeClause string, since, mid time.Time, scopeArgs ...any) (int64, int64, error) {
	var result struct {
		FirstHalf  int64
		SecondHalf int64
	}

	query := fmt.Sprintf(`
    SELECT
        COALESCE(SUM(CASE WHEN date < ? THEN %s ELSE 0 END), 0) as first_half,
        COALESCE(SUM(CASE WHEN date >= ? THEN %s ELSE 0 END), 0) as second_half
    FROM %s
    WHERE date >= ?
    %s
    `, column, column, table, scopeClause)

	args := append([]any{mid, mid, since}, scopeArgs...)
	if err := db.Raw(query, args...).Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("error fetching window halves from %s: %w", table, err)
	}
	return result.FirstHalf, result.SecondHalf, nil
}
