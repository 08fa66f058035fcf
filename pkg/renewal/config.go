package renewal

import (
	"fmt"
	"time"
)

// Config holds manager configuration
type Config struct {
	// UpcomingDays is the look-ahead window of Upcoming, in days (default: 14)
	UpcomingDays int

	// Clock supplies "today". When nil, a storage implementing TimeSource is used,
	// otherwise SystemClock.
	Clock Clock

	// CacheConfig configures the subscription list cache (default: disabled)
	CacheConfig *CacheConfig

	// CircuitBreakerConfig configures the storage circuit breaker (default: disabled)
	CircuitBreakerConfig *CircuitBreakerConfig

	// FallbackConfig serves the last loaded list while storage fails (default: disabled)
	FallbackConfig *FallbackConfig

	// Metrics is used for tracking view builds and storage operations (default: NoopMetrics)
	Metrics Metrics

	// Logger is used for structured logging (default: NoopLogger)
	Logger Logger
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	// Enabled determines if caching is active
	Enabled bool

	// TTL is how long an owner's subscription list stays cached (default: 1 minute)
	TTL time.Duration

	// MaxOwners is the maximum number of owners to cache (default: 1000)
	MaxOwners int
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	// Enabled determines if the circuit breaker is active
	Enabled bool

	// FailureThreshold is the number of consecutive failures before opening the circuit (default: 5)
	FailureThreshold int

	// ResetTimeout is the duration to wait before transitioning from Open to Half-Open (default: 30 seconds)
	ResetTimeout time.Duration
}

// FallbackConfig holds fallback configuration
type FallbackConfig struct {
	// Enabled determines if the fallback is active
	Enabled bool

	// MaxStaleness is how old a list may be when it is served (default: 1 hour)
	MaxStaleness time.Duration

	// MaxOwners is the maximum number of owner lists kept (default: 1000)
	MaxOwners int
}

// Validate checks the configuration for values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.UpcomingDays < 0 {
		return fmt.Errorf("upcoming days must not be negative, got %d", c.UpcomingDays)
	}
	if cc := c.CacheConfig; cc != nil {
		if cc.TTL < 0 {
			return fmt.Errorf("cache TTL must not be negative, got %v", cc.TTL)
		}
		if cc.MaxOwners < 0 {
			return fmt.Errorf("cache max owners must not be negative, got %d", cc.MaxOwners)
		}
	}
	if cb := c.CircuitBreakerConfig; cb != nil {
		if cb.FailureThreshold < 0 {
			return fmt.Errorf("circuit breaker failure threshold must not be negative, got %d", cb.FailureThreshold)
		}
		if cb.ResetTimeout < 0 {
			return fmt.Errorf("circuit breaker reset timeout must not be negative, got %v", cb.ResetTimeout)
		}
	}
	if fc := c.FallbackConfig; fc != nil {
		if fc.MaxStaleness < 0 {
			return fmt.Errorf("fallback max staleness must not be negative, got %v", fc.MaxStaleness)
		}
		if fc.MaxOwners < 0 {
			return fmt.Errorf("fallback max owners must not be negative, got %d", fc.MaxOwners)
		}
	}
	return nil
}
