package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDateFormat is returned when an explicit date argument cannot be
// parsed; it is surfaced to the user rather than crashing the invocation.
var ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")

// TimeWindow is a half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DateLabel returns the calendar date the window covers, in the window's zone.
func (w TimeWindow) DateLabel() string {
	return w.Start.Format("2006-01-02")
}

// WindowFor computes the scrape window in loc. With an empty date it covers
// the previous calendar day relative to now; with an explicit YYYY-MM-DD date
// it covers that day. Both forms are [start-of-day, start-of-next-day).
func WindowFor(now time.Time, date string, loc *time.Location) (TimeWindow, error) {
	if date == "" {
		local := now.In(loc)
		end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return TimeWindow{Start: end.AddDate(0, 0, -1), End: end}, nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, date)
	}
	return TimeWindow{Start: day, End: day.AddDate(0, 0, 1)}, nil
}
