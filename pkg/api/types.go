package api

import (
	"github.com/shopspring/decimal"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// dateLayout is the wire format of calendar dates.
const dateLayout = "2006-01-02"

// SubscriptionSummary is the subset of a subscription shown in calendar views
type SubscriptionSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Cost     decimal.Decimal `json:"cost"`
	Currency string          `json:"currency"`
	Period   renewal.Period  `json:"renewal_period"`
	Status   renewal.Status  `json:"status"`
}

// RenewalEntry is one renewal on a calendar day
type RenewalEntry struct {
	SubscriptionSummary
	IsPast bool `json:"is_past"`
}

// DayResponse lists the renewals on one day of a month
type DayResponse struct {
	Date     string         `json:"date"`
	Renewals []RenewalEntry `json:"renewals"`
}

// MonthResponse is the calendar of one month; Days holds every day in order
type MonthResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []DayResponse `json:"days"`
}

// YearResponse holds the twelve month calendars of a year
type YearResponse struct {
	Year   int             `json:"year"`
	Months []MonthResponse `json:"months"`
}

// UpcomingEntry is the next renewal of a subscription within the look-ahead window
type UpcomingEntry struct {
	SubscriptionSummary
	Date string `json:"date"`
}

// UpcomingResponse lists upcoming renewals ordered by date
type UpcomingResponse struct {
	Today    string          `json:"today"`
	Renewals []UpcomingEntry `json:"renewals"`
}

// DueResponse lists the subscriptions renewing on one date
type DueResponse struct {
	Date          string                `json:"date"`
	Subscriptions []SubscriptionSummary `json:"subscriptions"`
}

// BillingEntry is a subscription with its next billing date; NextBilling is empty when
// a cancelled subscription bills no more
type BillingEntry struct {
	SubscriptionSummary
	NextBilling string `json:"next_billing,omitempty"`
}

// NextBillingResponse lists subscriptions by next billing date
type NextBillingResponse struct {
	Today         string         `json:"today"`
	Subscriptions []BillingEntry `json:"subscriptions"`
}

// TotalsResponse holds annual cost per currency code, overall and per category
type TotalsResponse struct {
	Annual     map[string]decimal.Decimal            `json:"annual"`
	ByCategory map[string]map[string]decimal.Decimal `json:"by_category"`
}

func summaryOf(sub renewal.Subscription) SubscriptionSummary {
	return SubscriptionSummary{
		ID:       sub.ID,
		Name:     sub.Name,
		Category: sub.Category,
		Cost:     sub.Cost,
		Currency: sub.Currency,
		Period:   sub.Period,
		Status:   sub.Status,
	}
}

func monthResponse(view *renewal.MonthView) MonthResponse {
	resp := MonthResponse{
		Year:  view.Year,
		Month: int(view.Month),
		Days:  make([]DayResponse, 0, view.Len()),
	}
	for day := 1; day <= view.Len(); day++ {
		entries := view.On(day)
		dr := DayResponse{
			Date:     renewal.Date(view.Year, view.Month, day).Format(dateLayout),
			Renewals: make([]RenewalEntry, 0, len(entries)),
		}
		for _, e := range entries {
			dr.Renewals = append(dr.Renewals, RenewalEntry{SubscriptionSummary: summaryOf(e.Subscription), IsPast: e.IsPast})
		}
		resp.Days = append(resp.Days, dr)
	}
	return resp
}
