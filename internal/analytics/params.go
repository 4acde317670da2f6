package analytics

import (
	"vetpulse/internal/timeframe"
)

// DefaultLimit bounds top-N result sets when the caller does not ask for one.
const DefaultLimit = 20

// QueryParams contains common parameters for windowed analytics queries
type QueryParams struct {
	Window timeframe.Window
	Limit  int
}

// NewQueryParams creates query params with the specified window
func NewQueryParams(window timeframe.Window, limit int) QueryParams {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return QueryParams{
		Window: window,
		Limit:  limit,
	}
}

// Period describes the resolved window in API responses
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

// PeriodFromWindow converts a window into its response representation
func PeriodFromWindow(w timeframe.Window) Period {
	return Period{
		From: w.Since.Format(timeframe.DateLayout),
		To:   w.Today.Format(timeframe.DateLayout),
		Days: w.Days,
	}
}

// DailyPoint is one entry of a chronological daily trend
type DailyPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
