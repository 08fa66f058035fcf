package renewal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCircuitBreaker(t *testing.T) {
	threshold := 3
	timeout := 100 * time.Millisecond
	var mu sync.Mutex
	var lastState CircuitBreakerState
	cb := NewDefaultCircuitBreaker(threshold, timeout, func(state CircuitBreakerState) {
		mu.Lock()
		lastState = state
		mu.Unlock()
	})
	last := func() CircuitBreakerState {
		mu.Lock()
		defer mu.Unlock()
		return lastState
	}

	ctx := context.Background()
	fail := func() error { return errors.New("fail") }

	// Initial state: Closed
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < threshold-1; i++ {
		assert.Error(t, cb.Execute(ctx, fail))
		assert.Equal(t, StateClosed, cb.State())
	}

	// Next failure opens the circuit
	assert.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, StateOpen, last())

	// When open, Execute fails fast without calling fn
	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	time.Sleep(timeout + 10*time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Success in half-open closes the circuit
	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, StateClosed, last())

	// Open it again, then fail the half-open probe
	for i := 0; i < threshold; i++ {
		_ = cb.Execute(ctx, fail)
	}
	assert.Equal(t, StateOpen, cb.State())
	time.Sleep(timeout + 10*time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	err = cb.Execute(ctx, fail)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, StateOpen, cb.State())
}

func TestDefaultCircuitBreaker_BusinessErrorsDoNotTrip(t *testing.T) {
	cb := NewDefaultCircuitBreaker(1, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := cb.Execute(ctx, func() error { return ErrSubscriptionNotFound })
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestDefaultCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewDefaultCircuitBreaker(1, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestDefaultCircuitBreaker_Defaults(t *testing.T) {
	cb := NewDefaultCircuitBreaker(0, 0, nil)
	assert.Equal(t, 5, cb.failureThreshold)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
}

type flakyStorage struct {
	Storage
	fail bool
}

func (f *flakyStorage) ListSubscriptions(_ context.Context, _ string) ([]Subscription, error) {
	if f.fail {
		return nil, errors.New("db error")
	}
	return []Subscription{{ID: "a"}}, nil
}

func (f *flakyStorage) Now(_ context.Context) (time.Time, error) {
	return Date(2023, time.March, 15), nil
}

func TestCircuitBreakerStorage(t *testing.T) {
	inner := &flakyStorage{}
	s := NewCircuitBreakerStorage(inner, NewDefaultCircuitBreaker(2, time.Minute, nil))
	ctx := context.Background()

	subs, err := s.ListSubscriptions(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	inner.fail = true
	for i := 0; i < 2; i++ {
		_, err = s.ListSubscriptions(ctx, "user1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	inner.fail = false
	_, err = s.ListSubscriptions(ctx, "user1")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerStorage_Now(t *testing.T) {
	s := NewCircuitBreakerStorage(&flakyStorage{}, NewDefaultCircuitBreaker(2, time.Minute, nil))
	now, err := s.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Date(2023, time.March, 15), now)

	type plain struct{ Storage }
	s = NewCircuitBreakerStorage(plain{}, NewDefaultCircuitBreaker(2, time.Minute, nil))
	_, err = s.Now(context.Background())
	assert.Error(t, err)
}
