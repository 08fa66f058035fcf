package renewal

import "time"

const secondsPerDay = 24 * 60 * 60

// DateOf returns the calendar date of t, as observed in t's location, at 00:00 UTC.
// Every date the engine accepts or returns goes through DateOf.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date returns the given calendar date at 00:00 UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// lastDayOf returns the last day-of-month of the given month.
// Day 0 of the following month is the last day of this one.
func lastDayOf(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampDay returns the date with the given day-of-month in (year, month). A day past the
// end of the month is moved back to the month's last day. This is the only place the
// engine builds a date from a day-of-month, so it never produces a nonexistent day.
//
// For example, anchor day 31 gives:
//   - Jan 31
//   - Feb 28 (Feb 29 in leap years)
//   - Mar 31
//   - Apr 30
func clampDay(year int, month time.Month, day int) time.Time {
	if last := lastDayOf(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}

// monthIndex numbers calendar months consecutively.
func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// monthsBetween returns the number of calendar months from from's month to (year, month).
func monthsBetween(from time.Time, year int, month time.Month) int {
	return monthIndex(year, month) - monthIndex(from.Year(), from.Month())
}

// addMonths moves (year, month) by n calendar months.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := monthIndex(year, month) + n
	return floorDiv(idx, 12), time.Month(floorMod(idx, 12) + 1)
}

// daysBetween returns the whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int64 {
	return (b.Unix() - a.Unix()) / secondsPerDay
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func floorDiv(a, n int) int {
	return (a - floorMod(a, n)) / n
}
