package renewal

import (
	"fmt"
	"strings"
)

// Period is the renewal period of a subscription. The set of periods is closed;
// the zero value is not a valid period.
type Period int

const (
	// Weekly renews every 7 days from the start date
	Weekly Period = iota + 1
	// Monthly renews on the anniversary day every month
	Monthly
	// Quarterly renews on the anniversary day every third month
	Quarterly
	// Yearly renews on the anniversary day and month every year
	Yearly
	// Biennial renews on the anniversary day and month every second year
	Biennial
)

var periodNames = map[Period]string{
	Weekly:    "weekly",
	Monthly:   "monthly",
	Quarterly: "quarterly",
	Yearly:    "yearly",
	Biennial:  "biennial",
}

// Periods returns every renewal period in ascending length.
func Periods() []Period {
	return []Period{Weekly, Monthly, Quarterly, Yearly, Biennial}
}

// ParsePeriod parses the lowercase name of a renewal period.
// Unknown names are rejected with ErrInvalidPeriod.
func ParsePeriod(s string) (Period, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range periodNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	_, ok := periodNames[p]
	return ok
}

func (p Period) String() string {
	if n, ok := periodNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return []byte(periodNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// cycleMonths is the length of a month-based period in calendar months.
// Weekly is not month-based and yields 0.
func (p Period) cycleMonths() int {
	switch p {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Yearly:
		return 12
	case Biennial:
		return 24
	default:
		return 0
	}
}

func (p Period) validate() error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return nil
}
