package renewal

import (
	"context"
	"time"
)

// Storage defines the interface to the application's subscription records.
// Implementations must return copies so callers cannot mutate stored state.
type Storage interface {
	// GetSubscription retrieves a subscription by ID
	// Returns ErrSubscriptionNotFound if there is no such record
	GetSubscription(ctx context.Context, id string) (*Subscription, error)

	// PutSubscription creates or replaces a subscription
	PutSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription
	// Returns ErrSubscriptionNotFound if there is no such record
	DeleteSubscription(ctx context.Context, id string) error

	// ListSubscriptions returns every subscription of an owner, ordered by name
	ListSubscriptions(ctx context.Context, ownerID string) ([]Subscription, error)
}

// TimeSource defines an interface for getting time from the storage engine.
// When the storage implements it, "today" for every view is taken from the storage
// engine instead of the application server, so replicas agree on the date.
type TimeSource interface {
	// Now returns the current time from the storage engine.
	Now(ctx context.Context) (time.Time, error)
}

// Clock supplies the current time when storage is not a TimeSource.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Useful in tests.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
