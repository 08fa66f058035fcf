package renewal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	statusActive    = "active"
	statusCancelled = "cancelled"
)

// Status is either active or cancelled on a date. A cancelled subscription keeps its
// renewal semantics up to and including the cancellation date.
type Status struct {
	cancelled bool
	on        time.Time
}

// Active returns the status of a subscription that has not been cancelled.
func Active() Status {
	return Status{}
}

// CancelledOn returns the status of a subscription cancelled effective d.
func CancelledOn(d time.Time) Status {
	return Status{cancelled: true, on: DateOf(d)}
}

// IsActive reports whether the subscription has not been cancelled.
func (s Status) IsActive() bool {
	return !s.cancelled
}

// CancellationDate returns the cancellation date and true for a cancelled subscription.
func (s Status) CancellationDate() (time.Time, bool) {
	return s.on, s.cancelled
}

func (s Status) String() string {
	if s.cancelled {
		return statusCancelled
	}
	return statusActive
}

// endedBefore reports whether d is strictly after the cancellation date.
func (s Status) endedBefore(d time.Time) bool {
	return s.cancelled && d.After(s.on)
}

type statusJSON struct {
	State       string `json:"state"`
	CancelledOn string `json:"cancelled_on,omitempty"`
}

// MarshalJSON encodes the status as {"state":"cancelled","cancelled_on":"2006-01-02"}.
func (s Status) MarshalJSON() ([]byte, error) {
	out := statusJSON{State: s.String()}
	if s.cancelled {
		out.CancelledOn = s.on.Format(time.DateOnly)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var in statusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "", statusActive:
		*s = Active()
	case statusCancelled:
		on, err := time.Parse(time.DateOnly, in.CancelledOn)
		if err != nil {
			return fmt.Errorf("invalid cancellation date %q: %w", in.CancelledOn, err)
		}
		*s = CancelledOn(on)
	default:
		return fmt.Errorf("unknown subscription state %q", in.State)
	}
	return nil
}

// Subscription is a recurring subscription. The engine reads StartDate, Period and Status;
// the remaining fields are carried for the surrounding application.
type Subscription struct {
	ID        string          `json:"id" validate:"max=64"`
	OwnerID   string          `json:"owner_id" validate:"required,max=255"`
	Name      string          `json:"name" validate:"required,max=200"`
	Category  string          `json:"category,omitempty" validate:"max=100"`
	Cost      decimal.Decimal `json:"cost"`
	Currency  string          `json:"currency" validate:"omitempty,len=3,alpha"`
	URL       string          `json:"url,omitempty" validate:"omitempty,url"`
	Notes     string          `json:"notes,omitempty"`
	StartDate time.Time       `json:"start_date"`
	Period    Period          `json:"renewal_period"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var validate = validator.New()

// Validate checks the record before it is stored.
func (s *Subscription) Validate() error {
	if s == nil {
		return ErrInvalidSubscription
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubscription, err)
	}
	if s.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidSubscription)
	}
	if err := s.Period.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubscription, err)
	}
	if s.Cost.IsNegative() {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidSubscription)
	}
	if on, ok := s.Status.CancellationDate(); ok && on.Before(DateOf(s.StartDate)) {
		return fmt.Errorf("%w: cancelled before start date", ErrInvalidSubscription)
	}
	return nil
}
