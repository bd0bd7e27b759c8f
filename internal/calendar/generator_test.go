package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func TestDates(t *testing.T) {
	cutover := mustDate(t, "2026-02-03")
	gen := NewGenerator([]time.Weekday{time.Sunday, time.Monday}, 16, cutover, DefaultWindow())

	// 2026-02-01 is a Sunday; 09:00 is before the first slot of the day.
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	dates := gen.Dates(now, 0)

	want := []struct {
		iso  string
		paid bool
	}{
		{"2026-02-01", false},
		{"2026-02-02", false},
		{"2026-02-08", true},
		{"2026-02-09", true},
		{"2026-02-15", true},
		{"2026-02-16", true},
	}

	assert.Len(t, dates, len(want))
	for i, w := range want {
		assert.Equal(t, w.iso, dates[i].ISO)
		assert.Equal(t, w.paid, dates[i].Paid, "paid tag for %s", w.iso)
	}
}

func TestDatesCursor(t *testing.T) {
	cutover := mustDate(t, "2026-02-03")
	gen := NewGenerator([]time.Weekday{time.Sunday, time.Monday}, 16, cutover, DefaultWindow())
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	next := gen.Dates(now, 1)
	assert.NotEmpty(t, next)
	// Next window starts 16 days out: first hit is Sunday 2026-02-22.
	assert.Equal(t, "2026-02-22", next[0].ISO)

	// Paging backwards never exposes dates before today.
	prev := gen.Dates(now, -1)
	assert.Equal(t, gen.Dates(now, 0), prev)
}

func TestDatesTodayExhausted(t *testing.T) {
	cutover := mustDate(t, "2026-02-03")
	gen := NewGenerator([]time.Weekday{time.Sunday, time.Monday}, 16, cutover, DefaultWindow())

	// 21:00 on Sunday: last slot (08:30 PM) already started, day drops out.
	now := time.Date(2026, 2, 1, 21, 0, 0, 0, time.UTC)
	dates := gen.Dates(now, 0)
	assert.Equal(t, "2026-02-02", dates[0].ISO)

	// 20:00: last slot still ahead, the day is listed even though earlier
	// labels have passed.
	now = time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	dates = gen.Dates(now, 0)
	assert.Equal(t, "2026-02-01", dates[0].ISO)
}

func TestIsBookableDate(t *testing.T) {
	cutover := mustDate(t, "2026-02-03")
	gen := NewGenerator([]time.Weekday{time.Sunday, time.Monday}, 16, cutover, DefaultWindow())
	now := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

	assert.True(t, gen.IsBookableDate(mustDate(t, "2026-02-08"), now))
	// Wednesday is not an allowed weekday.
	assert.False(t, gen.IsBookableDate(mustDate(t, "2026-02-11"), now))
	// Past Sunday.
	assert.False(t, gen.IsBookableDate(mustDate(t, "2026-02-01"), now))
}

func TestAvailableLabels(t *testing.T) {
	gen := NewGenerator(nil, 16, mustDate(t, "2026-02-03"), DefaultWindow())
	day := mustDate(t, "2026-02-01")

	// Future day: full set.
	now := time.Date(2026, 1, 25, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, DefaultWindow().TimeLabels(), gen.AvailableLabels(day, now))

	// Same day at 12:10: everything up to and including 12:00 PM is gone.
	now = time.Date(2026, 2, 1, 12, 10, 0, 0, time.UTC)
	labels := gen.AvailableLabels(day, now)
	assert.NotEmpty(t, labels)
	assert.Equal(t, "12:30 PM", labels[0])
	for _, l := range labels {
		start, err := LabelStart(day, l)
		assert.NoError(t, err)
		assert.True(t, start.After(now), "label %s should be upcoming", l)
	}
}

func TestTimeLabels(t *testing.T) {
	labels := DefaultWindow().TimeLabels()

	assert.Equal(t, "10:00 AM", labels[0])
	assert.Equal(t, "08:30 PM", labels[len(labels)-1])
	assert.Len(t, labels, 22)
	assert.Contains(t, labels, "12:00 PM")
	assert.Contains(t, labels, "01:00 PM")

	assert.True(t, DefaultWindow().Contains("12:00 PM"))
	assert.False(t, DefaultWindow().Contains("12:15 PM"))
}
