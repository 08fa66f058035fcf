package renewal

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// listFallback keeps the last list loaded for each owner so views can still be served
// while storage is failing. Snapshots older than the configured staleness expire.
type listFallback struct {
	snapshots *expirable.LRU[string, []Subscription]
	metrics   Metrics
	logger    Logger
}

func newListFallback(config *FallbackConfig, metrics Metrics, logger Logger) *listFallback {
	maxOwners := config.MaxOwners
	if maxOwners <= 0 {
		maxOwners = 1000
	}
	staleness := config.MaxStaleness
	if staleness <= 0 {
		staleness = time.Hour
	}
	return &listFallback{
		snapshots: expirable.NewLRU[string, []Subscription](maxOwners, nil, staleness),
		metrics:   metrics,
		logger:    logger,
	}
}

// shouldFallback reports errors caused by storage health rather than by the request.
func shouldFallback(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (f *listFallback) remember(ownerID string, subs []Subscription) {
	f.snapshots.Add(ownerID, slices.Clone(subs))
}

// forget drops a snapshot once a write made it outdated.
func (f *listFallback) forget(ownerID string) {
	f.snapshots.Remove(ownerID)
}

func (f *listFallback) recover(ownerID string, cause error) ([]Subscription, error) {
	if !shouldFallback(cause) {
		return nil, cause
	}
	subs, ok := f.snapshots.Get(ownerID)
	if !ok {
		return nil, cause
	}
	f.metrics.RecordFallbackHit("list")
	f.logger.Warn("serving last known subscription list",
		Field{"owner_id", ownerID}, Field{"error", cause.Error()})
	return slices.Clone(subs), nil
}
