package stripe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/gorenew/pkg/billing"
	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// IDPrefix marks subscription records created from Stripe.
const IDPrefix = "stripe_"

var errNeverBilled = errors.New("subscription was never billed")

// zeroDecimalCurrencies have no minor unit; Stripe amounts are already whole units.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// PeriodFor maps a Stripe recurring interval to a renewal period.
func PeriodFor(recurring *stripe.PriceRecurring) (renewal.Period, error) {
	if recurring == nil {
		return 0, fmt.Errorf("%w: price is not recurring", billing.ErrUnsupportedInterval)
	}
	count := recurring.IntervalCount
	if count == 0 {
		count = 1
	}
	switch {
	case recurring.Interval == stripe.PriceRecurringIntervalWeek && count == 1:
		return renewal.Weekly, nil
	case recurring.Interval == stripe.PriceRecurringIntervalMonth && count == 1:
		return renewal.Monthly, nil
	case recurring.Interval == stripe.PriceRecurringIntervalMonth && count == 3:
		return renewal.Quarterly, nil
	case recurring.Interval == stripe.PriceRecurringIntervalMonth && count == 12,
		recurring.Interval == stripe.PriceRecurringIntervalYear && count == 1:
		return renewal.Yearly, nil
	case recurring.Interval == stripe.PriceRecurringIntervalMonth && count == 24,
		recurring.Interval == stripe.PriceRecurringIntervalYear && count == 2:
		return renewal.Biennial, nil
	}
	return 0, fmt.Errorf("%w: every %d %s", billing.ErrUnsupportedInterval, count, recurring.Interval)
}

// ToSubscription converts a Stripe subscription into a renewal subscription owned by
// ownerID. The cost is the sum over all items of unit amount times quantity.
//
// Stripe reports when a subscription ends (EndedAt, or CancelAt for a scheduled
// cancellation); nothing is billed on that day, so the cancellation date is the day
// before, but never before the start date.
func ToSubscription(sub *stripe.Subscription, ownerID string) (*renewal.Subscription, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: nil subscription", renewal.ErrInvalidSubscription)
	}
	switch sub.Status {
	case stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return nil, errNeverBilled
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("%w: subscription %s has no items", renewal.ErrInvalidSubscription, sub.ID)
	}

	first := sub.Items.Data[0].Price
	if first == nil {
		return nil, fmt.Errorf("%w: subscription %s has no price", renewal.ErrInvalidSubscription, sub.ID)
	}
	period, err := PeriodFor(first.Recurring)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(string(sub.Currency))
	if currency == "" {
		currency = strings.ToLower(string(first.Currency))
	}
	cost := decimal.Zero
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		cost = cost.Add(amount(item.Price.UnitAmount, currency).Mul(decimal.NewFromInt(qty)))
	}

	start := renewal.DateOf(time.Unix(sub.StartDate, 0).UTC())
	rec := &renewal.Subscription{
		ID:        IDPrefix + sub.ID,
		OwnerID:   ownerID,
		Name:      displayName(sub, first),
		Cost:      cost,
		Currency:  strings.ToUpper(currency),
		StartDate: start,
		Period:    period,
		Status:    renewal.Active(),
	}

	if end := endedAt(sub); end > 0 {
		on := renewal.DateOf(time.Unix(end, 0).UTC()).AddDate(0, 0, -1)
		if on.Before(start) {
			on = start
		}
		rec.Status = renewal.CancelledOn(on)
	}
	return rec, nil
}

func endedAt(sub *stripe.Subscription) int64 {
	switch {
	case sub.EndedAt > 0:
		return sub.EndedAt
	case sub.CancelAt > 0:
		return sub.CancelAt
	case sub.Status == stripe.SubscriptionStatusCanceled:
		return sub.CanceledAt
	}
	return 0
}

func amount(minor int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(minor)
	}
	return decimal.New(minor, -2)
}

func displayName(sub *stripe.Subscription, price *stripe.Price) string {
	switch {
	case price.Product != nil && price.Product.Name != "":
		return price.Product.Name
	case price.Nickname != "":
		return price.Nickname
	case sub.Description != "":
		return sub.Description
	}
	return sub.ID
}
