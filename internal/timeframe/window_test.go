package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

func TestParseExplicitDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	parser := NewParser(&fixedTimeProvider{now: now})

	window, err := parser.Parse(Params{Days: 7, DefaultDays: 30})
	require.NoError(t, err)

	assert.Equal(t, 7, window.Days)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), window.Today)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), window.Since)
}

func TestParseFallsBackToDefault(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	parser := NewParser(&fixedTimeProvider{now: now})

	window, err := parser.Parse(Params{DefaultDays: 30})
	require.NoError(t, err)

	assert.Equal(t, 30, window.Days)
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), window.Since)
}

func TestParseDateRangeDefinesLength(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	parser := NewParser(&fixedTimeProvider{now: now})

	window, err := parser.Parse(Params{
		StartDate:   "2026-01-01",
		EndDate:     "2026-01-11",
		DefaultDays: 30,
	})
	require.NoError(t, err)

	// The range supplies the length only; the window still ends today.
	assert.Equal(t, 10, window.Days)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), window.Since)
}

func TestParseRejectsInvalidInput(t *testing.T) {
	parser := NewParser(&fixedTimeProvider{now: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)})

	cases := []struct {
		name   string
		params Params
	}{
		{"days over maximum", Params{Days: 400, DefaultDays: 30}},
		{"negative days", Params{Days: -5, DefaultDays: 30}},
		{"missing end date", Params{StartDate: "2026-01-01", DefaultDays: 30}},
		{"malformed start date", Params{StartDate: "Jan 1 2026", EndDate: "2026-01-11", DefaultDays: 30}},
		{"end before start", Params{StartDate: "2026-01-11", EndDate: "2026-01-01", DefaultDays: 30}},
		{"range over maximum", Params{StartDate: "2024-01-01", EndDate: "2026-01-01", DefaultDays: 30}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.Parse(tc.params)
			require.Error(t, err)
			var invalid *InvalidWindowError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestMidpointSplitsWindow(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	w := Window{Since: since, Days: 30}
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), w.Midpoint())

	// Integer division: a 31-day window has a 15-day first half.
	w = Window{Since: since, Days: 31}
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), w.Midpoint())
}
