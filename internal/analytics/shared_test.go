package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vetpulse/internal/analytics"
	"vetpulse/internal/testsupport"
	"vetpulse/internal/timeframe"
)

// windowDays builds an N-day window ending today, matching what the
// query-string parser produces.
func windowDays(days int) timeframe.Window {
	return timeframe.Window{
		Since: testsupport.DaysAgo(days),
		Today: testsupport.DaysAgo(0),
		Days:  days,
	}
}

func paramsDays(days int) analytics.QueryParams {
	return analytics.NewQueryParams(windowDays(days), 0)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, analytics.Round2(33.333333))
	assert.Equal(t, 33.34, analytics.Round2(33.335))
	assert.Equal(t, -2.5, analytics.Round2(-2.499))
	assert.Equal(t, 0.0, analytics.Round2(0))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 50.0, analytics.Percentage(1, 2))
	assert.Equal(t, 33.33, analytics.Percentage(1, 3))

	// A zero denominator is reported as zero, not an error.
	assert.Equal(t, 0.0, analytics.Percentage(5, 0))
	assert.Equal(t, 0.0, analytics.Percentage(5, -1))
}

func TestGrowthRate(t *testing.T) {
	assert.Equal(t, 100.0, analytics.GrowthRate(10, 20))
	assert.Equal(t, -50.0, analytics.GrowthRate(20, 10))
	assert.Equal(t, 0.0, analytics.GrowthRate(15, 15))

	// An empty first half never shows up as infinite growth.
	assert.Equal(t, 0.0, analytics.GrowthRate(0, 100))
}

func TestNewQueryParamsDefaultsLimit(t *testing.T) {
	params := analytics.NewQueryParams(windowDays(30), 0)
	assert.Equal(t, analytics.DefaultLimit, params.Limit)

	params = analytics.NewQueryParams(windowDays(30), 5)
	assert.Equal(t, 5, params.Limit)
}
