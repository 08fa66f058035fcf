package renewal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Manager serves the calendar views for the subscriptions an owner keeps in storage.
// It is safe for concurrent use.
type Manager struct {
	storage Storage
	config  Config
	cache   Cache
	// fallback is nil unless enabled.
	fallback *listFallback
	loads   singleflight.Group

	// generations counts writes per owner. A load only fills the cache and the
	// fallback if no write happened while it ran.
	genMu       sync.Mutex
	generations map[string]uint64

	// storageTime is set when no Clock was configured and storage is a TimeSource.
	storageTime TimeSource
}

// NewManager creates a new manager with the given storage and configuration
func NewManager(storage Storage, config *Config) (*Manager, error) {
	if storage == nil {
		return nil, ErrStorageUnavailable
	}
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	_, hasTime := storage.(TimeSource)
	useStorageTime := hasTime && cfg.Clock == nil

	// Set defaults
	if cfg.UpcomingDays == 0 {
		cfg.UpcomingDays = DefaultUpcomingDays
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = &NoopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoopMetrics{}
	}

	if cfg.CircuitBreakerConfig != nil && cfg.CircuitBreakerConfig.Enabled {
		metrics, logger := cfg.Metrics, cfg.Logger
		cb := NewDefaultCircuitBreaker(
			cfg.CircuitBreakerConfig.FailureThreshold,
			cfg.CircuitBreakerConfig.ResetTimeout,
			func(state CircuitBreakerState) {
				metrics.RecordCircuitBreakerStateChange(string(state))
				logger.Warn("storage circuit breaker changed state", Field{"state", string(state)})
			},
		)
		storage = NewCircuitBreakerStorage(storage, cb)
	}

	// Resolved after wrapping so storage time goes through the breaker too.
	var storageTime TimeSource
	if useStorageTime {
		storageTime = storage.(TimeSource)
	}

	var cache Cache = NewNoopCache()
	if cfg.CacheConfig != nil && cfg.CacheConfig.Enabled {
		cache = NewLRUCache(cfg.CacheConfig.MaxOwners, cfg.CacheConfig.TTL)
	}

	var fallback *listFallback
	if cfg.FallbackConfig != nil && cfg.FallbackConfig.Enabled {
		fallback = newListFallback(cfg.FallbackConfig, cfg.Metrics, cfg.Logger)
	}

	return &Manager{
		storage:     storage,
		config:      cfg,
		cache:       cache,
		fallback:    fallback,
		generations: make(map[string]uint64),
		storageTime: storageTime,
	}, nil
}

// Today returns the current date. Without a configured Clock, a storage that is a
// TimeSource decides the date.
func (m *Manager) Today(ctx context.Context) time.Time {
	if m.storageTime != nil {
		now, err := m.storageTime.Now(ctx)
		if err == nil {
			return DateOf(now)
		}
		m.config.Logger.Debug("storage time unavailable, using local clock", Field{"error", err.Error()})
	}
	return DateOf(m.config.Clock.Now())
}

// Create stores a new subscription. A blank ID is assigned a UUID; a given ID that is
// already stored fails with ErrSubscriptionExists.
func (m *Manager) Create(ctx context.Context, sub *Subscription) (*Subscription, error) {
	if sub == nil {
		return nil, ErrInvalidSubscription
	}
	rec := *sub
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else {
		_, err := m.Get(ctx, rec.ID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: %s", ErrSubscriptionExists, rec.ID)
		case !errors.Is(err, ErrSubscriptionNotFound):
			return nil, err
		}
	}
	rec.StartDate = DateOf(rec.StartDate)
	now := m.config.Clock.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := m.put(ctx, &rec); err != nil {
		return nil, err
	}
	m.config.Logger.Info("subscription created",
		Field{"id", rec.ID}, Field{"owner_id", rec.OwnerID}, Field{"period", rec.Period.String()})
	return &rec, nil
}

// Get returns a subscription by ID.
func (m *Manager) Get(ctx context.Context, id string) (*Subscription, error) {
	var sub *Subscription
	err := m.observe("get", func() error {
		var e error
		sub, e = m.storage.GetSubscription(ctx, id)
		return e
	})
	return sub, err
}

// Update replaces the mutable fields of a subscription. The start date anchors every
// renewal and cannot be changed; ErrStartDateImmutable is returned if it differs.
func (m *Manager) Update(ctx context.Context, sub *Subscription) (*Subscription, error) {
	if sub == nil {
		return nil, ErrInvalidSubscription
	}
	existing, err := m.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	anchor := DateOf(existing.StartDate)
	if !DateOf(sub.StartDate).Equal(anchor) {
		return nil, ErrStartDateImmutable
	}

	rec := *sub
	rec.StartDate = anchor
	rec.OwnerID = existing.OwnerID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = m.config.Clock.Now().UTC()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := m.put(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Cancel marks a subscription cancelled effective the given date. Renewals on that date
// still count; later ones do not.
func (m *Manager) Cancel(ctx context.Context, id string, effective time.Time) (*Subscription, error) {
	return m.setStatus(ctx, id, CancelledOn(effective))
}

// Reactivate clears a cancellation.
func (m *Manager) Reactivate(ctx context.Context, id string) (*Subscription, error) {
	return m.setStatus(ctx, id, Active())
}

func (m *Manager) setStatus(ctx context.Context, id string, status Status) (*Subscription, error) {
	sub, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Status = status
	sub.UpdatedAt = m.config.Clock.Now().UTC()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := m.put(ctx, sub); err != nil {
		return nil, err
	}
	m.config.Logger.Info("subscription status changed", Field{"id", id}, Field{"status", status.String()})
	return sub, nil
}

// Delete removes a subscription.
func (m *Manager) Delete(ctx context.Context, id string) error {
	sub, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	err = m.observe("delete", func() error {
		return m.storage.DeleteSubscription(ctx, id)
	})
	if err != nil {
		return err
	}
	m.invalidate(sub.OwnerID)
	return nil
}

// List returns every subscription of an owner, ordered by name.
func (m *Manager) List(ctx context.Context, ownerID string) ([]Subscription, error) {
	if subs, ok := m.cache.Get(ownerID); ok {
		m.config.Metrics.RecordCacheHit("subscriptions")
		return subs, nil
	}
	m.config.Metrics.RecordCacheMiss("subscriptions")

	// Concurrent views for the same owner share one storage read.
	v, err, _ := m.loads.Do(ownerID, func() (interface{}, error) {
		gen := m.generation(ownerID)
		var subs []Subscription
		err := m.observe("list", func() error {
			var e error
			subs, e = m.storage.ListSubscriptions(ctx, ownerID)
			return e
		})
		if err != nil {
			return nil, err
		}
		m.store(ownerID, gen, subs)
		return subs, nil
	})
	if err != nil {
		if m.fallback != nil {
			return m.fallback.recover(ownerID, err)
		}
		return nil, err
	}
	return v.([]Subscription), nil
}

// Calendar returns the month view of an owner's subscriptions.
func (m *Manager) Calendar(ctx context.Context, ownerID string, year int, month time.Month) (*MonthView, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := MonthCalendar(subs, year, month, m.Today(ctx))
	m.recordView("month", ownerID, len(subs), start, err)
	return v, err
}

// Year returns the twelve month views of a year.
func (m *Manager) Year(ctx context.Context, ownerID string, year int) (*YearView, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := YearCalendar(subs, year, m.Today(ctx))
	m.recordView("year", ownerID, len(subs), start, err)
	return v, err
}

// Upcoming returns the renewals due within the configured look-ahead window.
func (m *Manager) Upcoming(ctx context.Context, ownerID string) ([]Upcoming, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := UpcomingRenewals(subs, m.Today(ctx), m.config.UpcomingDays)
	m.recordView("upcoming", ownerID, len(subs), start, err)
	return v, err
}

// Day returns the subscriptions renewing on a date.
func (m *Manager) Day(ctx context.Context, ownerID string, date time.Time) ([]Subscription, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := DueOn(subs, date, m.Today(ctx))
	m.recordView("day", ownerID, len(subs), start, err)
	return v, err
}

// NextBilling returns the owner's subscriptions ordered by next billing date.
func (m *Manager) NextBilling(ctx context.Context, ownerID string) ([]Billing, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := SortByNextBilling(subs, m.Today(ctx))
	m.recordView("next_billing", ownerID, len(subs), start, err)
	return v, err
}

// Totals returns the annual cost of the owner's active subscriptions per currency.
func (m *Manager) Totals(ctx context.Context, ownerID string) (map[string]decimal.Decimal, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return AnnualTotals(subs)
}

// CategoryTotals returns the annual cost of the owner's active subscriptions per category
// and currency.
func (m *Manager) CategoryTotals(ctx context.Context, ownerID string) (map[string]map[string]decimal.Decimal, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return AnnualTotalsByCategory(subs)
}

// Billed returns what is billed in each month of a year.
func (m *Manager) Billed(ctx context.Context, ownerID string, year int) ([12]MonthBilling, error) {
	subs, err := m.List(ctx, ownerID)
	if err != nil {
		return [12]MonthBilling{}, err
	}
	return MonthlyBilled(subs, year)
}

func (m *Manager) put(ctx context.Context, sub *Subscription) error {
	err := m.observe("put", func() error {
		return m.storage.PutSubscription(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("failed to store subscription %s: %w", sub.ID, err)
	}
	m.invalidate(sub.OwnerID)
	return nil
}

func (m *Manager) generation(ownerID string) uint64 {
	m.genMu.Lock()
	defer m.genMu.Unlock()
	return m.generations[ownerID]
}

// store caches a loaded list unless the owner was written to since gen was read.
func (m *Manager) store(ownerID string, gen uint64, subs []Subscription) {
	m.genMu.Lock()
	defer m.genMu.Unlock()
	if m.generations[ownerID] != gen {
		return
	}
	m.cache.Set(ownerID, subs)
	if m.fallback != nil {
		m.fallback.remember(ownerID, subs)
	}
}

func (m *Manager) invalidate(ownerID string) {
	m.genMu.Lock()
	m.generations[ownerID]++
	m.cache.Invalidate(ownerID)
	if m.fallback != nil {
		m.fallback.forget(ownerID)
	}
	m.genMu.Unlock()
	// Later reads must not join a load that started before the write.
	m.loads.Forget(ownerID)
}

// observe times a storage operation and reports unexpected failures.
func (m *Manager) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.config.Metrics.RecordStorageOperation(operation, time.Since(start), err)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		m.config.Logger.Error("storage operation failed",
			Field{"operation", operation}, Field{"error", err.Error()})
	}
	return err
}

func (m *Manager) recordView(view, ownerID string, n int, start time.Time, err error) {
	m.config.Metrics.RecordViewBuild(view, n, time.Since(start))
	if err != nil {
		m.config.Logger.Error("failed to build view",
			Field{"view", view}, Field{"owner_id", ownerID}, Field{"error", err.Error()})
	}
}
