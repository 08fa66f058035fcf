package renewal

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitBreakerState represents the current state of the circuit breaker.
type CircuitBreakerState string

const (
	StateClosed   CircuitBreakerState = "closed"
	StateOpen     CircuitBreakerState = "open"
	StateHalfOpen CircuitBreakerState = "half_open"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// CircuitBreaker defines the interface for a circuit breaker.
type CircuitBreaker interface {
	// Execute executes the given function within the circuit breaker.
	Execute(ctx context.Context, fn func() error) error
	// Success records a successful execution.
	Success()
	// Failure records a failed execution.
	Failure(err error)
	// State returns the current state of the circuit breaker.
	State() CircuitBreakerState
}

// DefaultCircuitBreaker opens after a run of consecutive failures and lets a single probe
// through once the reset timeout has passed.
type DefaultCircuitBreaker struct {
	mu sync.RWMutex

	state               CircuitBreakerState
	failureThreshold    int
	resetTimeout        time.Duration
	consecutiveFailures int
	lastFailureTime     time.Time

	onStateChange func(state CircuitBreakerState)
}

// NewDefaultCircuitBreaker creates a new default circuit breaker.
func NewDefaultCircuitBreaker(failureThreshold int, resetTimeout time.Duration,
	onStateChange func(state CircuitBreakerState)) *DefaultCircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &DefaultCircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		onStateChange:    onStateChange,
	}
}

func (cb *DefaultCircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.currentState()
}

func (cb *DefaultCircuitBreaker) currentState() CircuitBreakerState {
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *DefaultCircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cb.State() == StateOpen {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && !isBusinessError(err) {
		cb.Failure(err)
		return err
	}

	cb.Success()
	return err
}

func (cb *DefaultCircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen || cb.state == StateOpen {
		cb.changeState(StateClosed)
	}
	cb.consecutiveFailures = 0
}

func (cb *DefaultCircuitBreaker) Failure(_ error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.currentState() == StateHalfOpen
	cb.consecutiveFailures++
	cb.lastFailureTime = time.Now()

	if halfOpen || (cb.state == StateClosed && cb.consecutiveFailures >= cb.failureThreshold) {
		cb.changeState(StateOpen)
	}
}

func (cb *DefaultCircuitBreaker) changeState(newState CircuitBreakerState) {
	if cb.state != newState {
		cb.state = newState
		if cb.onStateChange != nil {
			cb.onStateChange(newState)
		}
	}
}

// isBusinessError reports errors that say nothing about the health of the storage.
func isBusinessError(err error) bool {
	return errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrInvalidSubscription) ||
		errors.Is(err, ErrInvalidPeriod)
}

// CircuitBreakerStorage wraps a Storage implementation with circuit breaker protection.
type CircuitBreakerStorage struct {
	storage Storage
	cb      CircuitBreaker
}

// NewCircuitBreakerStorage creates a new storage wrapper with circuit breaker.
func NewCircuitBreakerStorage(storage Storage, cb CircuitBreaker) *CircuitBreakerStorage {
	return &CircuitBreakerStorage{
		storage: storage,
		cb:      cb,
	}
}

func (s *CircuitBreakerStorage) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub *Subscription
	err := s.cb.Execute(ctx, func() error {
		var e error
		sub, e = s.storage.GetSubscription(ctx, id)
		return e
	})
	return sub, err
}

func (s *CircuitBreakerStorage) PutSubscription(ctx context.Context, sub *Subscription) error {
	return s.cb.Execute(ctx, func() error {
		return s.storage.PutSubscription(ctx, sub)
	})
}

func (s *CircuitBreakerStorage) DeleteSubscription(ctx context.Context, id string) error {
	return s.cb.Execute(ctx, func() error {
		return s.storage.DeleteSubscription(ctx, id)
	})
}

func (s *CircuitBreakerStorage) ListSubscriptions(ctx context.Context, ownerID string) ([]Subscription, error) {
	var subs []Subscription
	err := s.cb.Execute(ctx, func() error {
		var e error
		subs, e = s.storage.ListSubscriptions(ctx, ownerID)
		return e
	})
	return subs, err
}

// Now forwards to the wrapped storage's TimeSource when it has one.
func (s *CircuitBreakerStorage) Now(ctx context.Context) (time.Time, error) {
	ts, ok := s.storage.(TimeSource)
	if !ok {
		return time.Time{}, errors.New("wrapped storage is not a time source")
	}
	var now time.Time
	err := s.cb.Execute(ctx, func() error {
		var e error
		now, e = ts.Now(ctx)
		return e
	})
	return now, err
}
