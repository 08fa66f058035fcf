package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

const (
	maxWebhookBody = 256 * 1024
	ownerMetadata  = "owner_id"
)

var errMissingOwner = errors.New("owner could not be resolved")

// WebhookHandler returns an http.Handler for Stripe webhook events. Subscription
// lifecycle events trigger a full sync of the event's customer, so events arriving out
// of order or more than once converge on the state Stripe currently holds.
func (i *Importer) WebhookHandler() http.Handler {
	return http.HandlerFunc(i.handleWebhook)
}

func (i *Importer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(i.webhookSecret) == 0 {
		http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			i.metrics.RecordWebhookError(providerName, "payload_too_large")
			return
		}
		http.Error(w, "invalid payload", http.StatusBadRequest)
		i.metrics.RecordWebhookError(providerName, "invalid_payload")
		return
	}

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), string(i.webhookSecret))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		i.metrics.RecordWebhookError(providerName, "auth_failed")
		return
	}

	eventType := string(event.Type)
	status, err := i.processWebhookEvent(r.Context(), &event)
	if err != nil {
		i.logger.Error("stripe webhook failed",
			renewal.Field{Key: "event_id", Value: event.ID},
			renewal.Field{Key: "event_type", Value: eventType},
			renewal.Field{Key: "error", Value: err.Error()})
		i.metrics.RecordWebhookEvent(providerName, eventType, "error")
		if errors.Is(err, errMissingOwner) {
			// Retrying will not help, acknowledge the event
			i.metrics.RecordWebhookError(providerName, "missing_owner")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	i.metrics.RecordWebhookEvent(providerName, eventType, status)
	i.logger.Debug("stripe webhook processed",
		renewal.Field{Key: "event_type", Value: eventType},
		renewal.Field{Key: "status", Value: status},
		renewal.Field{Key: "duration", Value: time.Since(startTime)})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (i *Importer) processWebhookEvent(ctx context.Context, event *stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
	default:
		return "ignored", nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return "", fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", fmt.Errorf("%w: subscription %s has no customer", errMissingOwner, sub.ID)
	}

	ownerID, err := i.ownerOf(ctx, &sub)
	if err != nil {
		return "", err
	}
	if _, err := i.SyncCustomer(ctx, ownerID, sub.Customer.ID); err != nil {
		return "", err
	}
	return "success", nil
}

func (i *Importer) ownerOf(ctx context.Context, sub *stripe.Subscription) (string, error) {
	if owner := sub.Metadata[ownerMetadata]; owner != "" {
		return owner, nil
	}
	if i.resolveOwner == nil {
		return "", fmt.Errorf("%w: metadata.%s missing on subscription %s", errMissingOwner, ownerMetadata, sub.ID)
	}
	owner, err := i.resolveOwner(ctx, sub.Customer.ID)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", fmt.Errorf("%w: customer %s", errMissingOwner, sub.Customer.ID)
	}
	return owner, nil
}
