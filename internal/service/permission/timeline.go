package permission

import "time"

// Timeline classifies an entity date against the caller's calendar day.
type Timeline string

const (
	Past   Timeline = "past"
	Today  Timeline = "today"
	Future Timeline = "future"
)

// Classify compares the calendar day of date with the calendar day of now, both
// read in loc.
func Classify(date, now time.Time, loc *time.Location) Timeline {
	d := startOfDay(date, loc)
	n := startOfDay(now, loc)
	switch {
	case d.Before(n):
		return Past
	case d.After(n):
		return Future
	default:
		return Today
	}
}

// CalendarDaysBetween counts day boundaries crossed from a to b in loc.
func CalendarDaysBetween(a, b time.Time, loc *time.Location) int {
	da := startOfDay(a, loc)
	db := startOfDay(b, loc)
	// Noon avoids DST days of 23 or 25 hours skewing the division.
	da = da.Add(12 * time.Hour)
	db = db.Add(12 * time.Hour)
	return int(db.Sub(da).Round(24*time.Hour) / (24 * time.Hour))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
