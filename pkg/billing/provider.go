package billing

import (
	"context"
)

// Importer copies a customer's subscriptions from a billing backend into the
// renewal Manager, so their renewals appear on the owner's calendar.
type Importer interface {
	// Name returns the provider name (e.g., "stripe")
	Name() string

	// SyncCustomer imports every subscription of the provider customer for ownerID.
	// Re-running it updates the records it created before.
	SyncCustomer(ctx context.Context, ownerID, customerID string) (SyncResult, error)
}

// SyncResult counts what a sync did.
type SyncResult struct {
	Created int
	Updated int
	// Skipped counts subscriptions that were never billed or use an unsupported interval.
	Skipped int
}
