// Package timeframe resolves the reporting window every analytics query
// operates on. Windows are whole UTC calendar days anchored at "today";
// trailing days without data are part of the window and must show up as
// zeros downstream, never be dropped.
package timeframe

import (
	"fmt"
	"time"
)

// MaxWindowDays bounds how far back a single query may reach.
const MaxWindowDays = 365

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// InvalidWindowError signals malformed dates or an out-of-bound day count.
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid time window: %s", e.Reason)
}

// NewInvalidWindowError creates a new InvalidWindowError
func NewInvalidWindowError(reason string) *InvalidWindowError {
	return &InvalidWindowError{Reason: reason}
}

// TimeProvider abstracts the clock so tests can pin "today".
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

// Now returns the current time
func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Window is a rolling period of Days whole days ending today.
type Window struct {
	Since time.Time // inclusive, UTC midnight
	Today time.Time // UTC midnight of the resolution day
	Days  int
}

// Midpoint returns the date splitting the window into its two halves,
// used by the growth-rate computation. Integer day division: a 31-day
// window has a 15-day first half.
func (w Window) Midpoint() time.Time {
	return w.Since.AddDate(0, 0, w.Days/2)
}

// Params carries the raw window inputs from a request. When both dates are
// set they define the window length; otherwise Days applies; otherwise
// DefaultDays.
type Params struct {
	StartDate   string
	EndDate     string
	Days        int
	DefaultDays int
}

// Parser resolves request parameters into a Window.
type Parser struct {
	timeProvider TimeProvider
}

// NewParser creates a Parser, optionally with a custom time provider.
func NewParser(timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Parser{timeProvider: provider}
}

// Parse resolves a Window. The day count is always subtracted from today,
// not from the supplied end date: callers asking for an old explicit range
// get a window of the same length ending now, which is what the dashboard
// comparison views expect.
func (p *Parser) Parse(params Params) (Window, error) {
	days, err := p.resolveDays(params)
	if err != nil {
		return Window{}, err
	}

	now := p.timeProvider.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return Window{
		Since: today.AddDate(0, 0, -days),
		Today: today,
		Days:  days,
	}, nil
}

func (p *Parser) resolveDays(params Params) (int, error) {
	if params.StartDate != "" || params.EndDate != "" {
		if params.StartDate == "" || params.EndDate == "" {
			return 0, NewInvalidWindowError("start_date and end_date must be supplied together")
		}
		start, err := time.Parse(DateLayout, params.StartDate)
		if err != nil {
			return 0, NewInvalidWindowError(fmt.Sprintf("malformed start_date %q", params.StartDate))
		}
		end, err := time.Parse(DateLayout, params.EndDate)
		if err != nil {
			return 0, NewInvalidWindowError(fmt.Sprintf("malformed end_date %q", params.EndDate))
		}
		days := int(end.Sub(start).Hours() / 24)
		if days <= 0 {
			return 0, NewInvalidWindowError("end_date must be after start_date")
		}
		if days > MaxWindowDays {
			return 0, NewInvalidWindowError(fmt.Sprintf("window exceeds %d days", MaxWindowDays))
		}
		return days, nil
	}

	days := params.Days
	if days == 0 {
		days = params.DefaultDays
	}
	if days <= 0 || days > MaxWindowDays {
		return 0, NewInvalidWindowError(fmt.Sprintf("days must be between 1 and %d", MaxWindowDays))
	}
	return days, nil
}
