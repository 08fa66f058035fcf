package renewal

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	weeksPerYear    = decimal.NewFromInt(52)
	monthsPerYear   = decimal.NewFromInt(12)
	quartersPerYear = decimal.NewFromInt(4)
	two             = decimal.NewFromInt(2)
)

// AnnualCost returns what a subscription costs per year at its renewal period.
// Weekly is counted as 52 renewals.
func AnnualCost(sub Subscription) (decimal.Decimal, error) {
	switch sub.Period {
	case Weekly:
		return sub.Cost.Mul(weeksPerYear), nil
	case Monthly:
		return sub.Cost.Mul(monthsPerYear), nil
	case Quarterly:
		return sub.Cost.Mul(quartersPerYear), nil
	case Yearly:
		return sub.Cost, nil
	case Biennial:
		return sub.Cost.Div(two), nil
	default:
		return decimal.Zero, sub.Period.validate()
	}
}

// AnnualTotals sums the annual cost of active subscriptions per currency code.
// Amounts in different currencies are never combined.
func AnnualTotals(subs []Subscription) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal)
	for _, sub := range subs {
		if !sub.Status.IsActive() {
			continue
		}
		cost, err := AnnualCost(sub)
		if err != nil {
			return nil, err
		}
		totals[sub.Currency] = totals[sub.Currency].Add(cost)
	}
	return totals, nil
}

// Uncategorized is the category of subscriptions that have none.
const Uncategorized = "Uncategorized"

// AnnualTotalsByCategory groups the annual cost of active subscriptions by category, then
// by currency code.
func AnnualTotalsByCategory(subs []Subscription) (map[string]map[string]decimal.Decimal, error) {
	totals := make(map[string]map[string]decimal.Decimal)
	for _, sub := range subs {
		if !sub.Status.IsActive() {
			continue
		}
		cost, err := AnnualCost(sub)
		if err != nil {
			return nil, err
		}
		category := sub.Category
		if category == "" {
			category = Uncategorized
		}
		if totals[category] == nil {
			totals[category] = make(map[string]decimal.Decimal)
		}
		totals[category][sub.Currency] = totals[category][sub.Currency].Add(cost)
	}
	return totals, nil
}

// MonthBilling is what is actually billed in one month.
type MonthBilling struct {
	Month time.Month
	// Totals maps currency code to the amount billed.
	Totals map[string]decimal.Decimal
	// Renewals lists each billed renewal.
	Renewals []Upcoming
}

// MonthlyBilled returns, for each month of year, the renewals that bill in that month and
// their per-currency totals. A weekly subscription bills once per renewal.
func MonthlyBilled(subs []Subscription, year int) ([12]MonthBilling, error) {
	var out [12]MonthBilling
	for m := range out {
		out[m] = MonthBilling{Month: time.Month(m + 1), Totals: make(map[string]decimal.Decimal)}
	}
	for _, sub := range subs {
		months, err := occurrencesInYear(sub.StartDate, sub.Period, year)
		if err != nil {
			return out, err
		}
		for m, dates := range months {
			for _, d := range dates {
				if sub.Status.endedBefore(d) {
					continue
				}
				out[m].Totals[sub.Currency] = out[m].Totals[sub.Currency].Add(sub.Cost)
				out[m].Renewals = append(out[m].Renewals, Upcoming{Subscription: sub, Date: d})
			}
		}
	}
	return out, nil
}
