package renewal

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// DefaultUpcomingDays is the look-ahead window of the upcoming renewals list.
const DefaultUpcomingDays = 14

// Entry is one renewal of a subscription on a calendar day.
type Entry struct {
	Subscription Subscription
	Date         time.Time
	// IsPast is true when Date is before "today" of the view.
	IsPast bool
}

// MonthView maps every day of a month to the renewals on that day.
type MonthView struct {
	Year  int
	Month time.Month
	Days  map[int][]Entry
}

// On returns the renewals on the given day-of-month.
func (v *MonthView) On(day int) []Entry {
	return v.Days[day]
}

// Len returns the number of days in the month.
func (v *MonthView) Len() int {
	return len(v.Days)
}

// YearView holds the twelve month views of a year.
type YearView struct {
	Year   int
	Months [12]*MonthView
}

// Month returns the view of the given month.
func (v *YearView) Month(m time.Month) *MonthView {
	return v.Months[m-1]
}

// Upcoming is the next renewal of a subscription inside the look-ahead window.
type Upcoming struct {
	Subscription Subscription
	Date         time.Time
}

// Billing pairs a subscription with its next billing date. HasNext is false once a
// cancelled subscription has no further billing.
type Billing struct {
	Subscription Subscription
	Next         time.Time
	HasNext      bool
}

func newMonthView(year int, month time.Month) *MonthView {
	last := lastDayOf(year, month)
	v := &MonthView{Year: year, Month: month, Days: make(map[int][]Entry, last)}
	for day := 1; day <= last; day++ {
		v.Days[day] = nil
	}
	return v
}

// visible decides whether a renewal is shown on a calendar. Renewals past a cancellation
// never exist; a cancelled subscription is additionally hidden from today onward, since
// the calendar only keeps it for history.
func visible(sub Subscription, d, today time.Time) bool {
	if sub.Status.endedBefore(d) {
		return false
	}
	return sub.Status.IsActive() || d.Before(today)
}

func (v *MonthView) add(sub Subscription, dates []time.Time, today time.Time) {
	for _, d := range dates {
		if !visible(sub, d, today) {
			continue
		}
		v.Days[d.Day()] = append(v.Days[d.Day()], Entry{
			Subscription: sub,
			Date:         d,
			IsPast:       d.Before(today),
		})
	}
}

// MonthCalendar builds the month view of the given subscriptions. Within a day, entries
// keep the order of subs.
func MonthCalendar(subs []Subscription, year int, month time.Month, today time.Time) (*MonthView, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}
	today = DateOf(today)
	v := newMonthView(year, month)
	for _, sub := range subs {
		dates, err := OccurrencesInMonth(sub.StartDate, sub.Period, year, month)
		if err != nil {
			return nil, err
		}
		v.add(sub, dates, today)
	}
	return v, nil
}

// YearCalendar builds all twelve month views of a year, computing each subscription's
// renewals for the whole year at once.
func YearCalendar(subs []Subscription, year int, today time.Time) (*YearView, error) {
	today = DateOf(today)
	yv := &YearView{Year: year}
	for m := range yv.Months {
		yv.Months[m] = newMonthView(year, time.Month(m+1))
	}
	for _, sub := range subs {
		months, err := occurrencesInYear(sub.StartDate, sub.Period, year)
		if err != nil {
			return nil, err
		}
		for m, dates := range months {
			yv.Months[m].add(sub, dates, today)
		}
	}
	return yv, nil
}

// UpcomingRenewals returns the first renewal of every active subscription within
// [today, today+days], ordered by date then name.
func UpcomingRenewals(subs []Subscription, today time.Time, days int) ([]Upcoming, error) {
	today = DateOf(today)
	until := today.AddDate(0, 0, days)

	var out []Upcoming
	for _, sub := range subs {
		if !sub.Status.IsActive() {
			continue
		}
		next, ok, err := NextBillingDate(sub, today)
		if err != nil {
			return nil, err
		}
		if ok && !next.After(until) {
			out = append(out, Upcoming{Subscription: sub, Date: next})
		}
	}
	slices.SortStableFunc(out, func(a, b Upcoming) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Subscription.Name, b.Subscription.Name)
	})
	return out, nil
}

// DueOn returns the subscriptions renewing on d. Cancelled subscriptions are only
// listed for days before today.
func DueOn(subs []Subscription, d, today time.Time) ([]Subscription, error) {
	d = DateOf(d)
	today = DateOf(today)

	var out []Subscription
	for _, sub := range subs {
		if !sub.Status.IsActive() && !d.Before(today) {
			continue
		}
		ok, err := IsRenewal(sub, d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

// SortByNextBilling returns every subscription with its next billing date, soonest first.
// Subscriptions without a further billing date come last; ties are ordered by name.
func SortByNextBilling(subs []Subscription, today time.Time) ([]Billing, error) {
	out := make([]Billing, 0, len(subs))
	for _, sub := range subs {
		next, ok, err := NextBillingDate(sub, today)
		if err != nil {
			return nil, err
		}
		out = append(out, Billing{Subscription: sub, Next: next, HasNext: ok})
	}
	slices.SortStableFunc(out, func(a, b Billing) int {
		switch {
		case a.HasNext && !b.HasNext:
			return -1
		case !a.HasNext && b.HasNext:
			return 1
		}
		if c := a.Next.Compare(b.Next); c != 0 {
			return c
		}
		return cmp.Compare(a.Subscription.Name, b.Subscription.Name)
	})
	return out, nil
}
