package renewal

import "time"

// Metrics defines the interface for tracking calendar computations and storage performance.
type Metrics interface {
	// RecordViewBuild records how long a view (e.g. "month", "year", "upcoming") took
	// to compute and over how many subscriptions.
	RecordViewBuild(view string, subscriptions int, duration time.Duration)

	// RecordCacheHit records a cache hit for a specific cache type (e.g. "month").
	RecordCacheHit(cacheType string)

	// RecordCacheMiss records a cache miss for a specific cache type.
	RecordCacheMiss(cacheType string)

	// RecordStorageOperation records the duration and status of a storage operation.
	RecordStorageOperation(operation string, duration time.Duration, err error)

	// RecordCircuitBreakerStateChange records a circuit breaker state change.
	RecordCircuitBreakerStateChange(state string)

	// RecordFallbackHit records a view served from the last known list.
	RecordFallbackHit(strategy string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordViewBuild(view string, subscriptions int, duration time.Duration)      {}
func (n *NoopMetrics) RecordCacheHit(cacheType string)                                            {}
func (n *NoopMetrics) RecordCacheMiss(cacheType string)                                           {}
func (n *NoopMetrics) RecordStorageOperation(operation string, duration time.Duration, err error) {}
func (n *NoopMetrics) RecordCircuitBreakerStateChange(state string)                               {}
func (n *NoopMetrics) RecordFallbackHit(strategy string)                                          {}
