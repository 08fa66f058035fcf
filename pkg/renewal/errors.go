package renewal

import "errors"

var (
	// ErrInvalidPeriod is returned for an unknown renewal period
	ErrInvalidPeriod = errors.New("invalid renewal period")

	// ErrInvalidMonth is returned when a target month is outside January..December
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidSubscription is returned when a subscription record fails validation
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrSubscriptionNotFound is returned when storage has no record for an ID
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionExists is returned when a create names an ID that is already stored
	ErrSubscriptionExists = errors.New("subscription already exists")

	// ErrStartDateImmutable is returned when an update tries to move the anchor date
	ErrStartDateImmutable = errors.New("start date cannot be changed")

	// ErrStorageUnavailable is returned when storage is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)
