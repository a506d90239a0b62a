package domain

import "time"

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CalendarDay reads only the Y/M/D of t (as stored in a DATE column) and
// places it at midnight in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateString formats a DATE value as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}
