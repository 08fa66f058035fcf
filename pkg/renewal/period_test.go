package renewal

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"weekly", Weekly, false},
		{"monthly", Monthly, false},
		{"quarterly", Quarterly, false},
		{"yearly", Yearly, false},
		{"biennial", Biennial, false},
		{" Monthly ", Monthly, false},
		{"daily", 0, true},
		{"annually", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod_StringAndValid(t *testing.T) {
	for _, p := range Periods() {
		assert.True(t, p.Valid(), p.String())
		parsed, err := ParsePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	assert.False(t, Period(0).Valid())
	assert.False(t, Period(42).Valid())
	assert.Equal(t, "Period(42)", Period(42).String())
}

func TestPeriod_JSON(t *testing.T) {
	type wrapper struct {
		Period Period `json:"period"`
	}

	data, err := json.Marshal(wrapper{Period: Quarterly})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"quarterly"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"period":"biennial"}`), &w))
	assert.Equal(t, Biennial, w.Period)

	err = json.Unmarshal([]byte(`{"period":"fortnightly"}`), &w)
	assert.True(t, errors.Is(err, ErrInvalidPeriod), "got %v", err)

	_, err = json.Marshal(wrapper{})
	assert.Error(t, err, "zero period must not be encoded")
}

func TestPeriod_CycleMonths(t *testing.T) {
	assert.Equal(t, 0, Weekly.cycleMonths())
	assert.Equal(t, 1, Monthly.cycleMonths())
	assert.Equal(t, 3, Quarterly.cycleMonths())
	assert.Equal(t, 12, Yearly.cycleMonths())
	assert.Equal(t, 24, Biennial.cycleMonths())
}
