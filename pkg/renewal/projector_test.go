package renewal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name  string
		sub   Subscription
		today time.Time
		want  time.Time
	}{
		{"Weekly same day", sub(Date(2023, time.January, 2), Weekly), Date(2023, time.January, 9), Date(2023, time.January, 9)},
		{"Weekly next step", sub(Date(2023, time.January, 2), Weekly), Date(2023, time.January, 10), Date(2023, time.January, 16)},
		{"Weekly future start", sub(Date(2025, time.March, 10), Weekly), Date(2024, time.January, 1), Date(2025, time.March, 10)},

		{"Monthly clamped", sub(Date(2023, time.January, 31), Monthly), Date(2023, time.February, 15), Date(2023, time.February, 28)},
		{"Monthly reverts", sub(Date(2023, time.January, 31), Monthly), Date(2023, time.March, 1), Date(2023, time.March, 31)},
		{"Monthly day passed", sub(Date(2023, time.January, 10), Monthly), Date(2023, time.December, 11), Date(2024, time.January, 10)},
		{"Monthly future start", sub(Date(2025, time.March, 10), Monthly), Date(2024, time.January, 1), Date(2025, time.March, 10)},

		{"Quarterly next aligned month", sub(Date(2023, time.January, 31), Quarterly), Date(2023, time.February, 1), Date(2023, time.April, 30)},
		{"Quarterly after clamped month", sub(Date(2023, time.January, 31), Quarterly), Date(2023, time.May, 1), Date(2023, time.July, 31)},
		{"Quarterly same month later", sub(Date(2023, time.January, 15), Quarterly), Date(2023, time.April, 16), Date(2023, time.July, 15)},

		{"Yearly this year", sub(Date(2020, time.May, 10), Yearly), Date(2023, time.April, 1), Date(2023, time.May, 10)},
		{"Yearly next year", sub(Date(2020, time.May, 10), Yearly), Date(2023, time.May, 11), Date(2024, time.May, 10)},
		{"Yearly leap anchor clamped", sub(Date(2020, time.February, 29), Yearly), Date(2021, time.March, 1), Date(2022, time.February, 28)},
		{"Yearly leap anchor restored", sub(Date(2020, time.February, 29), Yearly), Date(2023, time.March, 1), Date(2024, time.February, 29)},

		{"Biennial before date in aligned year", sub(Date(2020, time.June, 15), Biennial), Date(2022, time.May, 1), Date(2022, time.June, 15)},
		{"Biennial after date in aligned year", sub(Date(2020, time.June, 15), Biennial), Date(2022, time.July, 1), Date(2024, time.June, 15)},
		{"Biennial on renewal day", sub(Date(2020, time.June, 15), Biennial), Date(2022, time.June, 15), Date(2022, time.June, 15)},
		{"Biennial day after renewal", sub(Date(2020, time.June, 15), Biennial), Date(2022, time.June, 16), Date(2024, time.June, 15)},
		{"Biennial odd year", sub(Date(2020, time.June, 15), Biennial), Date(2023, time.March, 1), Date(2024, time.June, 15)},

		{"Cancelled later still projects", cancelled(Date(2023, time.January, 15), Monthly, Date(2023, time.June, 30)), Date(2023, time.June, 20), Date(2023, time.July, 15)},
		{"Cancelled today", cancelled(Date(2023, time.January, 15), Monthly, Date(2023, time.June, 30)), Date(2023, time.June, 30), Date(2023, time.July, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextBillingDate(tt.sub, tt.today)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextBillingDate_CancelledInPast(t *testing.T) {
	s := cancelled(Date(2023, time.January, 15), Monthly, Date(2023, time.June, 30))

	got, ok, err := NextBillingDate(s, Date(2023, time.August, 1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, got.IsZero())
}

func TestNextBillingDate_InvalidPeriod(t *testing.T) {
	_, _, err := NextBillingDate(sub(Date(2023, time.January, 15), Period(0)), Date(2023, time.January, 15))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestNextBillingDate_IsARenewal(t *testing.T) {
	s := sub(Date(2021, time.August, 31), Quarterly)
	for today := Date(2021, time.August, 1); today.Year() < 2023; today = today.AddDate(0, 0, 1) {
		next, ok, err := NextBillingDate(s, today)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, next.Before(today))

		renews, err := IsRenewal(s, next)
		require.NoError(t, err)
		assert.True(t, renews, "next billing %s for today %s", next.Format(time.DateOnly), today.Format(time.DateOnly))
	}
}
