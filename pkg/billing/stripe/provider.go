// Package stripe imports Stripe subscriptions into the renewal Manager.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/gorenew/pkg/billing"
	"github.com/mihaimyh/gorenew/pkg/renewal"
)

const (
	providerName          = "stripe"
	subscriptionsEndpoint = "/subscriptions/list"
	subscriptionStatusAll = "all"
)

// SubscriptionSource lists a customer's subscriptions. The default source calls the
// Stripe API; tests substitute their own.
type SubscriptionSource interface {
	CustomerSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
}

// Config extends billing.Config with Stripe-specific options
type Config struct {
	billing.Config // Base config (Manager, APIKey, Metrics, Logger)

	// Source overrides the Stripe API client (optional)
	Source SubscriptionSource

	// OwnerResolver maps a Stripe customer to an owner ID for webhook events whose
	// subscription carries no "owner_id" metadata (optional)
	OwnerResolver func(ctx context.Context, customerID string) (string, error)
}

// Importer implements billing.Importer for Stripe
type Importer struct {
	manager *renewal.Manager
	source  SubscriptionSource
	metrics billing.Metrics
	logger  renewal.Logger

	webhookSecret []byte
	resolveOwner  func(ctx context.Context, customerID string) (string, error)
}

var _ billing.Importer = (*Importer)(nil)

// NewImporter creates a new Stripe importer
func NewImporter(config Config) (*Importer, error) {
	if config.Manager == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	source := config.Source
	if source == nil {
		apiKey := strings.TrimSpace(config.APIKey)
		if apiKey == "" {
			return nil, billing.ErrProviderNotConfigured
		}
		source = &apiSource{client: stripe.NewClient(apiKey)}
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	logger := config.Logger
	if logger == nil {
		logger = &renewal.NoopLogger{}
	}

	return &Importer{
		manager: config.Manager,
		source:  source,
		metrics: metrics,
		logger:  logger,

		webhookSecret: []byte(config.WebhookSecret),
		resolveOwner:  config.OwnerResolver,
	}, nil
}

// Name implements billing.Importer
func (i *Importer) Name() string {
	return providerName
}

// SyncCustomer implements billing.Importer. Each Stripe subscription becomes one
// renewal subscription with ID "stripe_<subscription id>", so repeated syncs update in
// place. The start date of an existing record is kept, since it anchors every renewal.
func (i *Importer) SyncCustomer(ctx context.Context, ownerID, customerID string) (billing.SyncResult, error) {
	startTime := time.Now()
	var result billing.SyncResult

	subs, err := i.source.CustomerSubscriptions(ctx, customerID)
	i.metrics.RecordAPICallDuration(providerName, subscriptionsEndpoint, time.Since(startTime))
	if err != nil {
		i.metrics.RecordAPICall(providerName, subscriptionsEndpoint, "error")
		i.finish("error", startTime)
		return result, fmt.Errorf("%w: failed to list subscriptions: %w", billing.ErrProviderAPIError, err)
	}
	i.metrics.RecordAPICall(providerName, subscriptionsEndpoint, "200")

	for _, sub := range subs {
		rec, err := ToSubscription(sub, ownerID)
		if errors.Is(err, errNeverBilled) || errors.Is(err, billing.ErrUnsupportedInterval) {
			result.Skipped++
			i.metrics.RecordImport(providerName, "skipped")
			i.logger.Info("skipping stripe subscription",
				renewal.Field{Key: "subscription_id", Value: sub.ID}, renewal.Field{Key: "reason", Value: err.Error()})
			continue
		}
		if err != nil {
			i.finish("error", startTime)
			return result, err
		}

		created, err := i.upsert(ctx, rec)
		if err != nil {
			i.finish("error", startTime)
			return result, fmt.Errorf("failed to import stripe subscription %s: %w", sub.ID, err)
		}
		if created {
			result.Created++
			i.metrics.RecordImport(providerName, "created")
		} else {
			result.Updated++
			i.metrics.RecordImport(providerName, "updated")
		}
	}

	i.finish("success", startTime)
	i.logger.Info("stripe customer synced",
		renewal.Field{Key: "owner_id", Value: ownerID},
		renewal.Field{Key: "created", Value: result.Created},
		renewal.Field{Key: "updated", Value: result.Updated},
		renewal.Field{Key: "skipped", Value: result.Skipped})
	return result, nil
}

func (i *Importer) upsert(ctx context.Context, rec *renewal.Subscription) (bool, error) {
	existing, err := i.manager.Get(ctx, rec.ID)
	if errors.Is(err, renewal.ErrSubscriptionNotFound) {
		_, err = i.manager.Create(ctx, rec)
		return true, err
	}
	if err != nil {
		return false, err
	}

	rec.StartDate = existing.StartDate
	if on, ok := rec.Status.CancellationDate(); ok && on.Before(rec.StartDate) {
		rec.Status = renewal.CancelledOn(rec.StartDate)
	}
	// Keep what the user edited locally
	rec.Name = existing.Name
	rec.Category = existing.Category
	rec.Notes = existing.Notes
	rec.URL = existing.URL
	_, err = i.manager.Update(ctx, rec)
	return false, err
}

func (i *Importer) finish(status string, startTime time.Time) {
	i.metrics.RecordSync(providerName, status)
	i.metrics.RecordSyncDuration(providerName, time.Since(startTime))
}

// apiSource lists subscriptions through the Stripe API.
type apiSource struct {
	client *stripe.Client
}

func (s *apiSource) CustomerSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{}
	params.Customer = stripe.String(customerID)
	params.Status = stripe.String(subscriptionStatusAll)

	var subs []*stripe.Subscription
	for sub, err := range s.client.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
