package billing

import "errors"

var (
	// ErrProviderNotConfigured is returned when a provider is not properly configured
	ErrProviderNotConfigured = errors.New("billing provider not configured")

	// ErrProviderAPIError is returned when the provider's API returns an error
	ErrProviderAPIError = errors.New("billing provider API error")

	// ErrCustomerNotFound is returned when a customer cannot be found in the provider
	ErrCustomerNotFound = errors.New("customer not found in billing provider")

	// ErrUnsupportedInterval is returned when a provider's billing interval has no
	// matching renewal period (e.g. every 2 weeks)
	ErrUnsupportedInterval = errors.New("billing interval has no matching renewal period")
)
