// Package calendar holds the date arithmetic used by settlement and
// recurring scheduling. All dates are civil.Date values; time zones only
// appear when deriving "today" from the wall clock.
package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clamp returns the date for day in the given month, moving days past the
// end of the month back to its last day. It never rolls into the next month.
// Month values outside 1-12 are normalized first.
func Clamp(year int, month time.Month, day int) civil.Date {
	first := civil.DateOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	last := DaysIn(first.Year, first.Month)
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return civil.Date{Year: first.Year, Month: first.Month, Day: day}
}

// AddMonths shifts year/month by n months, ignoring the day.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	d := civil.DateOf(time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
	return d.Year, d.Month
}

// ISOWeekday returns the ISO-8601 day of week: Monday=1 ... Sunday=7.
func ISOWeekday(d civil.Date) int {
	wd := d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// Range returns every date from "from" to "to", both inclusive.
// It returns nil when to is before from.
func Range(from, to civil.Date) []civil.Date {
	if to.Before(from) {
		return nil
	}
	dates := make([]civil.Date, 0, to.DaysSince(from)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time { return c.T }

// FixedDate returns a clock pinned to noon UTC on d.
func FixedDate(d civil.Date) FixedClock {
	return FixedClock{T: d.In(time.UTC).Add(12 * time.Hour)}
}

// Today returns the calendar date of clock's current time in loc.
// A nil loc means time.Local.
func Today(clock Clock, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(clock.Now().In(loc))
}
