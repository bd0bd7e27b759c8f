package calendar

import "time"

// TimeLabelFormat is the display format for slot labels ("01:00 PM").
const TimeLabelFormat = "03:04 PM"

// ServiceWindow describes the daily run of bookable slots.
type ServiceWindow struct {
	Start        string // "10:00", 24h clock
	End          string // "21:00", exclusive
	SlotDuration int    // minutes
}

// DefaultWindow covers 10:00 through 20:30 in half-hour steps.
func DefaultWindow() ServiceWindow {
	return ServiceWindow{Start: "10:00", End: "21:00", SlotDuration: 30}
}

// TimeLabels returns the fixed ordered label set for the window.
func (w ServiceWindow) TimeLabels() []string {
	if w.SlotDuration <= 0 {
		w.SlotDuration = 30
	}

	start, err := time.Parse("15:04", w.Start)
	if err != nil {
		return nil
	}
	end, err := time.Parse("15:04", w.End)
	if err != nil {
		return nil
	}

	step := time.Duration(w.SlotDuration) * time.Minute
	var labels []string
	for cursor := start; cursor.Before(end); cursor = cursor.Add(step) {
		labels = append(labels, cursor.Format(TimeLabelFormat))
	}
	return labels
}

// Contains reports whether label is a member of the window's label set.
func (w ServiceWindow) Contains(label string) bool {
	for _, l := range w.TimeLabels() {
		if l == label {
			return true
		}
	}
	return false
}

// LastStart returns the start instant of the final slot on the given day.
func (w ServiceWindow) LastStart(day time.Time) time.Time {
	labels := w.TimeLabels()
	if len(labels) == 0 {
		return day
	}
	start, _ := LabelStart(day, labels[len(labels)-1])
	return start
}

// LabelStart resolves a slot label to its absolute start instant on day.
func LabelStart(day time.Time, label string) (time.Time, error) {
	clock, err := time.Parse(TimeLabelFormat, label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
