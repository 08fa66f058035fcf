// Package memory provides an in-memory implementation of the renewal.Storage interface.
// This implementation is primarily intended for testing and development.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Storage implements renewal.Storage using in-memory maps
type Storage struct {
	mu            sync.RWMutex
	subscriptions map[string]*renewal.Subscription
	// owners indexes subscription IDs by owner
	owners map[string]map[string]struct{}
}

// New creates a new in-memory storage adapter
func New() *Storage {
	return &Storage{
		subscriptions: make(map[string]*renewal.Subscription),
		owners:        make(map[string]map[string]struct{}),
	}
}

// GetSubscription implements renewal.Storage
func (s *Storage) GetSubscription(_ context.Context, id string) (*renewal.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, renewal.ErrSubscriptionNotFound
	}

	// Return a copy to prevent external mutations
	subCopy := *sub
	return &subCopy, nil
}

// PutSubscription implements renewal.Storage
func (s *Storage) PutSubscription(_ context.Context, sub *renewal.Subscription) error {
	if sub == nil || sub.ID == "" || sub.OwnerID == "" {
		return fmt.Errorf("%w: missing id or owner", renewal.ErrInvalidSubscription)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An update may move the record to another owner
	if old, ok := s.subscriptions[sub.ID]; ok && old.OwnerID != sub.OwnerID {
		s.unindex(old.OwnerID, old.ID)
	}

	subCopy := *sub
	s.subscriptions[sub.ID] = &subCopy
	ids, ok := s.owners[sub.OwnerID]
	if !ok {
		ids = make(map[string]struct{})
		s.owners[sub.OwnerID] = ids
	}
	ids[sub.ID] = struct{}{}
	return nil
}

// DeleteSubscription implements renewal.Storage
func (s *Storage) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return renewal.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, id)
	s.unindex(sub.OwnerID, id)
	return nil
}

// ListSubscriptions implements renewal.Storage
func (s *Storage) ListSubscriptions(_ context.Context, ownerID string) ([]renewal.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.owners[ownerID]
	subs := make([]renewal.Subscription, 0, len(ids))
	for id := range ids {
		subs = append(subs, *s.subscriptions[id])
	}
	slices.SortFunc(subs, func(a, b renewal.Subscription) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return subs, nil
}

func (s *Storage) unindex(ownerID, id string) {
	ids := s.owners[ownerID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.owners, ownerID)
	}
}

// Clear removes all data (useful for testing)
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions = make(map[string]*renewal.Subscription)
	s.owners = make(map[string]map[string]struct{})
}
