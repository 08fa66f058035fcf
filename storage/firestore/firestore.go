// Package firestore provides a Firestore implementation of the renewal.Storage interface.
// This implementation uses Google Cloud Firestore for production-grade subscription persistence.
package firestore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Storage implements renewal.Storage using Google Cloud Firestore
type Storage struct {
	client                  *firestore.Client
	subscriptionsCollection string
	clockCollection         string
}

// Config holds Firestore storage configuration
type Config struct {
	// SubscriptionsCollection is the Firestore collection for subscription records
	// Default: "renewal_subscriptions"
	SubscriptionsCollection string

	// ClockCollection holds the document written to read the server time
	// Default: "renewal_clock"
	ClockCollection string
}

// New creates a new Firestore storage adapter
func New(client *firestore.Client, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	// Set defaults
	if config.SubscriptionsCollection == "" {
		config.SubscriptionsCollection = "renewal_subscriptions"
	}
	if config.ClockCollection == "" {
		config.ClockCollection = "renewal_clock"
	}

	return &Storage{
		client:                  client,
		subscriptionsCollection: config.SubscriptionsCollection,
		clockCollection:         config.ClockCollection,
	}, nil
}

// GetSubscription implements renewal.Storage
func (s *Storage) GetSubscription(ctx context.Context, id string) (*renewal.Subscription, error) {
	snap, err := s.client.Collection(s.subscriptionsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, renewal.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if !snap.Exists() {
		return nil, renewal.ErrSubscriptionNotFound
	}

	return fromDocument(snap.Ref.ID, snap.Data())
}

// PutSubscription implements renewal.Storage
func (s *Storage) PutSubscription(ctx context.Context, sub *renewal.Subscription) error {
	if sub == nil || sub.ID == "" || sub.OwnerID == "" {
		return fmt.Errorf("%w: missing id or owner", renewal.ErrInvalidSubscription)
	}

	doc := s.client.Collection(s.subscriptionsCollection).Doc(sub.ID)
	if _, err := doc.Set(ctx, toDocument(sub)); err != nil {
		return fmt.Errorf("failed to put subscription: %w", err)
	}

	return nil
}

// DeleteSubscription implements renewal.Storage
func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	_, err := s.client.Collection(s.subscriptionsCollection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return renewal.ErrSubscriptionNotFound
		}
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions implements renewal.Storage. Ordering happens client side so the
// query needs only the automatic single-field index on ownerId.
func (s *Storage) ListSubscriptions(ctx context.Context, ownerID string) ([]renewal.Subscription, error) {
	snaps, err := s.client.Collection(s.subscriptionsCollection).
		Where("ownerId", "==", ownerID).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	subs := make([]renewal.Subscription, 0, len(snaps))
	for _, snap := range snaps {
		sub, err := fromDocument(snap.Ref.ID, snap.Data())
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	slices.SortFunc(subs, func(a, b renewal.Subscription) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return subs, nil
}

// Now implements renewal.TimeSource. Firestore has no clock query, so a server
// timestamp is written to a single document and the commit time is returned.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	wr, err := s.client.Collection(s.clockCollection).Doc("now").Set(ctx, map[string]interface{}{
		"at": firestore.ServerTimestamp,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get firestore time: %w", err)
	}
	return wr.UpdateTime.UTC(), nil
}

func toDocument(sub *renewal.Subscription) map[string]interface{} {
	data := map[string]interface{}{
		"ownerId":       sub.OwnerID,
		"name":          sub.Name,
		"category":      sub.Category,
		"cost":          sub.Cost.String(),
		"currency":      sub.Currency,
		"url":           sub.URL,
		"notes":         sub.Notes,
		"startDate":     renewal.DateOf(sub.StartDate),
		"renewalPeriod": sub.Period.String(),
		"createdAt":     sub.CreatedAt,
		"updatedAt":     sub.UpdatedAt,
	}
	if on, ok := sub.Status.CancellationDate(); ok {
		data["cancelledOn"] = on
	}
	return data
}

func fromDocument(id string, data map[string]interface{}) (*renewal.Subscription, error) {
	cost, err := decimal.NewFromString(getString(data, "cost", "0"))
	if err != nil {
		return nil, fmt.Errorf("subscription %s: invalid cost: %w", id, err)
	}
	period, err := renewal.ParsePeriod(getString(data, "renewalPeriod", ""))
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", id, err)
	}

	sub := &renewal.Subscription{
		ID:        id,
		OwnerID:   getString(data, "ownerId", ""),
		Name:      getString(data, "name", ""),
		Category:  getString(data, "category", ""),
		Cost:      cost,
		Currency:  getString(data, "currency", ""),
		URL:       getString(data, "url", ""),
		Notes:     getString(data, "notes", ""),
		StartDate: renewal.DateOf(getTime(data, "startDate")),
		Period:    period,
		Status:    renewal.Active(),
		CreatedAt: getTime(data, "createdAt"),
		UpdatedAt: getTime(data, "updatedAt"),
	}
	if on, ok := data["cancelledOn"].(time.Time); ok && !on.IsZero() {
		sub.Status = renewal.CancelledOn(on.UTC())
	}
	return sub, nil
}

// Helper functions for type conversion from Firestore data

func getString(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return fallback
}

// getTime returns timestamps in UTC; Firestore hands them back in local time.
func getTime(data map[string]interface{}, key string) time.Time {
	if v, ok := data[key].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}
