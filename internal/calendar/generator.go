// Package calendar enumerates bookable session dates and time labels.
// Generation is a pure function of its inputs so callers can page through
// windows without touching storage.
package calendar

import "time"

// SessionDate is one selectable day in the booking calendar.
type SessionDate struct {
	Date time.Time `json:"-"`
	// ISO is Date rendered as YYYY-MM-DD for the wire.
	ISO  string `json:"date"`
	Paid bool   `json:"paid"`
}

// Generator produces bookable dates from a recurrence rule.
type Generator struct {
	allowed map[time.Weekday]bool
	horizon int
	cutover time.Time
	window  ServiceWindow
}

// NewGenerator builds a generator for the given allowed weekdays and horizon.
// Dates on or after cutover are tagged paid.
func NewGenerator(weekdays []time.Weekday, horizonDays int, cutover time.Time, window ServiceWindow) *Generator {
	if horizonDays <= 0 {
		horizonDays = 16
	}
	allowed := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		allowed[wd] = true
	}
	if len(allowed) == 0 {
		allowed[time.Sunday] = true
		allowed[time.Monday] = true
	}
	return &Generator{
		allowed: allowed,
		horizon: horizonDays,
		cutover: truncateToDay(cutover),
		window:  window,
	}
}

// Window returns the generator's daily service window.
func (g *Generator) Window() ServiceWindow {
	return g.window
}

// Horizon returns the window length in days.
func (g *Generator) Horizon() int {
	return g.horizon
}

// Dates enumerates the bookable dates in ascending order for the window
// starting at now plus cursor*horizon days. Cursor 0 is the current window,
// 1 the next, -1 the previous (dates before today are still excluded).
//
// If today falls on an allowed weekday it is listed as long as the final
// slot of the day has not started yet; filtering of individual past labels
// is the availability query's job, not the calendar's.
func (g *Generator) Dates(now time.Time, cursor int) []SessionDate {
	today := truncateToDay(now)
	windowStart := today.AddDate(0, 0, cursor*g.horizon)
	if windowStart.Before(today) {
		windowStart = today
	}

	dates := make([]SessionDate, 0, g.horizon)
	for i := 0; i < g.horizon; i++ {
		day := windowStart.AddDate(0, 0, i)
		if !g.allowed[day.Weekday()] {
			continue
		}
		if day.Equal(today) && !now.Before(g.window.LastStart(day)) {
			// The whole day has run out of slots.
			continue
		}
		dates = append(dates, SessionDate{
			Date: day,
			ISO:  day.Format("2006-01-02"),
			Paid: g.IsPaidDate(day),
		})
	}
	return dates
}

// IsPaidDate reports whether sessions on day require payment.
func (g *Generator) IsPaidDate(day time.Time) bool {
	return !truncateToDay(day).Before(g.cutover)
}

// IsBookableDate reports whether day is a valid reservation target:
// an allowed weekday that is not in the past relative to now.
func (g *Generator) IsBookableDate(day, now time.Time) bool {
	day = truncateToDay(day)
	if !g.allowed[day.Weekday()] {
		return false
	}
	return !day.Before(truncateToDay(now))
}

// AvailableLabels filters the full label set down to labels whose start
// instant has not passed. For any day other than today the full set is
// returned unchanged.
func (g *Generator) AvailableLabels(day, now time.Time) []string {
	labels := g.window.TimeLabels()
	if !truncateToDay(day).Equal(truncateToDay(now)) {
		return labels
	}

	var upcoming []string
	for _, label := range labels {
		start, err := LabelStart(day, label)
		if err != nil {
			continue
		}
		if start.After(now) {
			upcoming = append(upcoming, label)
		}
	}
	return upcoming
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
