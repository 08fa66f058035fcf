package renewal

import "time"

// IsRenewal reports whether the subscription renews on d. A cancelled subscription has no
// renewals after its cancellation date.
//
// For every date on or before the cancellation date (or any date for an active
// subscription) the answer equals membership of d in OccurrencesInMonth for d's month.
func IsRenewal(sub Subscription, d time.Time) (bool, error) {
	if err := sub.Period.validate(); err != nil {
		return false, err
	}
	d = DateOf(d)
	if sub.Status.endedBefore(d) {
		return false, nil
	}
	return renewsOn(DateOf(sub.StartDate), sub.Period, d), nil
}

// renewsOn ignores cancellation. start and d must be dates.
func renewsOn(start time.Time, period Period, d time.Time) bool {
	if d.Before(start) {
		return false
	}
	if period == Weekly {
		return daysBetween(start, d)%7 == 0
	}
	// Either the anchor day itself, or the month's last day when the anchor day does not
	// exist in d's month.
	occ, ok := occurrenceInMonth(start, period.cycleMonths(), d.Year(), d.Month())
	return ok && occ.Equal(d)
}
