package renewal

import (
	"fmt"
	"time"
)

// OccurrencesInMonth returns every renewal of a subscription anchored on start that falls
// inside (year, month), in ascending order. Month-based periods yield at most one date;
// weekly may yield several.
//
// Cancellation is not applied here; callers holding a Subscription filter the result
// (see MonthCalendar) or use IsRenewal.
func OccurrencesInMonth(start time.Time, period Period, year int, month time.Month) ([]time.Time, error) {
	if err := period.validate(); err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}

	start = DateOf(start)
	if period == Weekly {
		return weeklyInRange(start, Date(year, month, 1), clampDay(year, month, 31)), nil
	}
	if d, ok := occurrenceInMonth(start, period.cycleMonths(), year, month); ok {
		return []time.Time{d}, nil
	}
	return nil, nil
}

// occurrenceInMonth returns the renewal of a month-based period in (year, month).
// The month must be a whole number of cycles away from the start month, and the clamped
// date must not precede the start date.
func occurrenceInMonth(start time.Time, cycle, year int, month time.Month) (time.Time, bool) {
	if floorMod(monthsBetween(start, year, month), cycle) != 0 {
		return time.Time{}, false
	}
	d := clampDay(year, month, start.Day())
	if d.Before(start) {
		return time.Time{}, false
	}
	return d, true
}

// weeklyInRange returns the 7-day steps from start that fall within [from, to].
func weeklyInRange(start, from, to time.Time) []time.Time {
	if to.Before(start) {
		return nil
	}
	if from.Before(start) {
		from = start
	}

	var dates []time.Time
	for d := firstWeeklyOnOrAfter(start, from); !d.After(to); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}

// firstWeeklyOnOrAfter returns the first 7-day step from start that is not before from.
// from must not precede start.
func firstWeeklyOnOrAfter(start, from time.Time) time.Time {
	days := daysBetween(start, from)
	steps := (days + 6) / 7
	return start.AddDate(0, 0, int(steps*7))
}

// occurrencesInYear computes every month of a year in one pass for a single subscription.
// The result is indexed by month-1 and agrees with OccurrencesInMonth month by month.
func occurrencesInYear(start time.Time, period Period, year int) ([12][]time.Time, error) {
	var out [12][]time.Time
	if err := period.validate(); err != nil {
		return out, err
	}

	start = DateOf(start)
	if period == Weekly {
		for _, d := range weeklyInRange(start, Date(year, time.January, 1), Date(year, time.December, 31)) {
			out[d.Month()-1] = append(out[d.Month()-1], d)
		}
		return out, nil
	}

	cycle := period.cycleMonths()
	first := floorMod(-monthsBetween(start, year, time.January), cycle)
	for m := first; m < 12; m += cycle {
		month := time.January + time.Month(m)
		if d, ok := occurrenceInMonth(start, cycle, year, month); ok {
			out[m] = []time.Time{d}
		}
	}
	return out, nil
}
