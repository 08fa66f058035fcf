package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

const maxUserIDLen = 255

var errBadRequest = errors.New("bad request")

// Handler provides read-only HTTP endpoints over an owner's renewal calendar.
// Callers mount the handler methods on their own router.
type Handler struct {
	config Config
}

// Calendar returns the month view. Query: year, month (default: the current month).
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	today := h.config.Manager.Today(ctx)

	year, err := intParam(r, "year", today.Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, err := intParam(r, "month", int(today.Month()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.config.Manager.Calendar(ctx, userID, year, time.Month(month))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, monthResponse(view))
}

// Year returns the twelve month views of a year. Query: year (default: the current year).
func (h *Handler) Year(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	year, err := intParam(r, "year", h.config.Manager.Today(ctx).Year())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.config.Manager.Year(ctx, userID, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := YearResponse{Year: view.Year, Months: make([]MonthResponse, 0, len(view.Months))}
	for _, mv := range view.Months {
		resp.Months = append(resp.Months, monthResponse(mv))
	}
	h.writeJSON(w, resp)
}

// Upcoming returns the renewals within the manager's look-ahead window.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	upcoming, err := h.config.Manager.Upcoming(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := UpcomingResponse{
		Today:    h.config.Manager.Today(ctx).Format(dateLayout),
		Renewals: make([]UpcomingEntry, 0, len(upcoming)),
	}
	for _, u := range upcoming {
		resp.Renewals = append(resp.Renewals, UpcomingEntry{
			SubscriptionSummary: summaryOf(u.Subscription),
			Date:                u.Date.Format(dateLayout),
		})
	}
	h.writeJSON(w, resp)
}

// Day returns the subscriptions renewing on a date. Query: date (YYYY-MM-DD, required).
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("date")
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", errBadRequest, raw))
		return
	}

	subs, err := h.config.Manager.Day(r.Context(), userID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := DueResponse{Date: date.Format(dateLayout), Subscriptions: make([]SubscriptionSummary, 0, len(subs))}
	for _, sub := range subs {
		resp.Subscriptions = append(resp.Subscriptions, summaryOf(sub))
	}
	h.writeJSON(w, resp)
}

// NextBilling returns every subscription with its next billing date, soonest first.
func (h *Handler) NextBilling(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	billing, err := h.config.Manager.NextBilling(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := NextBillingResponse{
		Today:         h.config.Manager.Today(ctx).Format(dateLayout),
		Subscriptions: make([]BillingEntry, 0, len(billing)),
	}
	for _, b := range billing {
		entry := BillingEntry{SubscriptionSummary: summaryOf(b.Subscription)}
		if b.HasNext {
			entry.NextBilling = b.Next.Format(dateLayout)
		}
		resp.Subscriptions = append(resp.Subscriptions, entry)
	}
	h.writeJSON(w, resp)
}

// Totals returns the annual cost of active subscriptions per currency, overall and per
// category.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	totals, err := h.config.Manager.Totals(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	byCategory, err := h.config.Manager.CategoryTotals(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, TotalsResponse{Annual: totals, ByCategory: byCategory})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := h.config.GetUserID(r)
	if userID == "" {
		h.handleError(w, r, fmt.Errorf("user ID not found"), http.StatusUnauthorized)
		return "", false
	}
	if len(userID) > maxUserIDLen {
		h.handleError(w, r, fmt.Errorf("invalid user ID format"), http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, name, raw)
	}
	return v, nil
}

// fail maps manager errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, renewal.ErrInvalidMonth):
		h.handleError(w, r, err, http.StatusBadRequest)
	case errors.Is(err, renewal.ErrStorageUnavailable), errors.Is(err, renewal.ErrCircuitOpen):
		h.handleError(w, r, err, http.StatusServiceUnavailable)
	default:
		h.config.Logger.Error("calendar request failed", renewal.Field{Key: "path", Value: r.URL.Path},
			renewal.Field{Key: "error", Value: err.Error()})
		h.handleError(w, r, errors.New("internal error"), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response already started
		h.config.Logger.Warn("failed to encode response", renewal.Field{Key: "error", Value: err.Error()})
	}
}

// handleError handles errors with appropriate HTTP status codes
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse := map[string]string{
		"error": err.Error(),
	}
	if encodeErr := json.NewEncoder(w).Encode(errorResponse); encodeErr != nil {
		_ = encodeErr
	}
}
