package renewal

import "time"

// NextBillingDate returns the earliest renewal on or after today. It returns false when
// the subscription was cancelled before today. Otherwise the search ignores the
// cancellation date, so a subscription cancelled later this month still reports its
// next renewal.
//
// A start date in the future is itself the next billing date.
func NextBillingDate(sub Subscription, today time.Time) (time.Time, bool, error) {
	if err := sub.Period.validate(); err != nil {
		return time.Time{}, false, err
	}
	today = DateOf(today)
	if sub.Status.endedBefore(today) {
		return time.Time{}, false, nil
	}

	start := DateOf(sub.StartDate)
	from := today
	if start.After(from) {
		from = start
	}

	if sub.Period == Weekly {
		return firstWeeklyOnOrAfter(start, from), true, nil
	}
	return nextMonthBased(start, sub.Period.cycleMonths(), from), true, nil
}

// nextMonthBased scans forward over the months aligned with the period cycle, starting
// with the first aligned month not before from's month. The clamped date in that month
// may still be behind from (same month, later day), in which case the next aligned month
// always qualifies, so the loop runs at most twice.
//
// For yearly this is "this year's anniversary, else next year's"; for biennial the first
// aligned year is year + 2 - (years since start mod 2) once this year's date has passed.
func nextMonthBased(start time.Time, cycle int, from time.Time) time.Time {
	offset := monthsBetween(start, from.Year(), from.Month())
	if r := floorMod(offset, cycle); r != 0 {
		offset += cycle - r
	}
	for {
		year, month := addMonths(start.Year(), start.Month(), offset)
		if d := clampDay(year, month, start.Day()); !d.Before(from) {
			return d
		}
		offset += cycle
	}
}
