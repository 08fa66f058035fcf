// Package tiered provides a Hot/Cold tiered storage adapter that pairs fast ephemeral
// storage (Hot) with durable persistent storage (Cold).
package tiered

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Config configures the tiered storage behavior
type Config struct {
	// Hot is the L1 storage (e.g., Redis, Memory) serving single-record reads
	Hot renewal.Storage

	// Cold is the L2 persistence storage (e.g., Postgres, Firestore) as the source of truth
	Cold renewal.Storage

	// AsyncHotSync makes Hot updates after a Cold write non-blocking.
	// If false, Hot is updated before the write returns.
	AsyncHotSync bool

	// SyncBufferSize is the size of the buffered channel for async operations.
	// Default: 1000
	SyncBufferSize int

	// AsyncErrorHandler is called when a Hot update fails.
	AsyncErrorHandler func(error)
}

// Storage implements a Hot/Cold tiered storage architecture:
// - Read-Through: GetSubscription (Hot → Cold → populate Hot)
// - Write-Through: Put/Delete (Cold first, then Hot)
// - Cold-Only: ListSubscriptions, since Hot may hold only part of an owner's records
type Storage struct {
	hot  renewal.Storage
	cold renewal.Storage
	conf Config

	// Channel for async synchronization
	syncQueue chan func(context.Context) error
	shutdown  chan struct{}
	// mu orders enqueues before Close so the worker drains every queued job.
	mu        sync.RWMutex
	stopped   bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new tiered storage adapter.
func New(config Config) (*Storage, error) {
	if config.Hot == nil || config.Cold == nil {
		return nil, errors.New("tiered storage: both hot and cold storage are required")
	}

	if config.SyncBufferSize <= 0 {
		config.SyncBufferSize = 1000
	}

	s := &Storage{
		hot:       config.Hot,
		cold:      config.Cold,
		conf:      config,
		syncQueue: make(chan func(context.Context) error, config.SyncBufferSize),
		shutdown:  make(chan struct{}),
	}

	if config.AsyncHotSync {
		s.startWorker()
	}

	return s, nil
}

// Close gracefully shuts down the async worker (if enabled), draining queued updates.
func (s *Storage) Close() error {
	if s.conf.AsyncHotSync {
		s.closeOnce.Do(func() {
			s.mu.Lock()
			s.stopped = true
			close(s.shutdown)
			s.mu.Unlock()
			s.wg.Wait()
		})
	}
	return nil
}

// startWorker runs the background synchronization loop.
// Jobs run sequentially so updates to one record apply in order.
func (s *Storage) startWorker() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		for {
			select {
			case job := <-s.syncQueue:
				s.run(ctx, job)
			case <-s.shutdown:
				// Drain queue on shutdown
				for {
					select {
					case job := <-s.syncQueue:
						s.run(ctx, job)
					default:
						return
					}
				}
			}
		}
	}()
}

func (s *Storage) run(ctx context.Context, job func(context.Context) error) {
	if err := job(ctx); err != nil && s.conf.AsyncErrorHandler != nil {
		s.conf.AsyncErrorHandler(fmt.Errorf("tiered sync failed: %w", err))
	}
}

// syncHot applies an update to Hot, inline or through the worker queue. When the queue
// is full or the worker has stopped the update runs inline, so Hot never misses a write.
// Hot failures never fail the caller since Cold already succeeded.
func (s *Storage) syncHot(ctx context.Context, job func(context.Context) error) {
	if s.conf.AsyncHotSync && s.enqueue(job) {
		return
	}
	s.run(ctx, job)
}

// enqueue hands a job to the worker. It fails when the queue is full or Close has run.
func (s *Storage) enqueue(job func(context.Context) error) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return false
	}
	select {
	case s.syncQueue <- job:
		return true
	default:
		return false
	}
}

// --- Strategy: Read-Through (Hot → Cold → Populate Hot) ---

// GetSubscription implements renewal.Storage with read-through strategy.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*renewal.Subscription, error) {
	// 1. Try Hot
	sub, err := s.hot.GetSubscription(ctx, id)
	if err == nil {
		return sub, nil
	}

	// 2. Try Cold (Source of Truth)
	sub, err = s.cold.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. Populate Hot (Read-Repair)
	_ = s.hot.PutSubscription(ctx, sub) //nolint:errcheck // Cache fill - errors are non-critical

	return sub, nil
}

// --- Strategy: Cold-Only ---

// ListSubscriptions implements renewal.Storage from Cold.
func (s *Storage) ListSubscriptions(ctx context.Context, ownerID string) ([]renewal.Subscription, error) {
	return s.cold.ListSubscriptions(ctx, ownerID)
}

// --- Strategy: Write-Through (Cold → Hot) ---

// PutSubscription implements renewal.Storage with write-through strategy.
func (s *Storage) PutSubscription(ctx context.Context, sub *renewal.Subscription) error {
	// 1. Write Cold (Durability)
	if err := s.cold.PutSubscription(ctx, sub); err != nil {
		return err
	}
	// 2. Write Hot (Availability)
	rec := *sub
	s.syncHot(ctx, func(ctx context.Context) error {
		return s.hot.PutSubscription(ctx, &rec)
	})
	return nil
}

// DeleteSubscription implements renewal.Storage with write-through strategy.
func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	if err := s.cold.DeleteSubscription(ctx, id); err != nil {
		return err
	}
	s.syncHot(ctx, func(ctx context.Context) error {
		err := s.hot.DeleteSubscription(ctx, id)
		if errors.Is(err, renewal.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	})
	return nil
}

// --- TimeSource Support ---

// Now uses Hot store time for consistency (usually Redis TIME).
// Falls back to Cold if Hot doesn't support it, then local time.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	if ts, ok := s.hot.(renewal.TimeSource); ok {
		return ts.Now(ctx)
	}
	if ts, ok := s.cold.(renewal.TimeSource); ok {
		return ts.Now(ctx)
	}
	return time.Now().UTC(), nil
}
