package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSchemaComplete(t *testing.T) {
	ok := Observation{Fields: map[string]float64{FieldBuy: 1, FieldSell: 2}}
	nan := Observation{Fields: map[string]float64{FieldBuy: 1, FieldSell: math.NaN()}}
	missing := Observation{Fields: map[string]float64{FieldBuy: 1}}

	assert.True(t, GoldSchema.Complete(ok))
	assert.False(t, GoldSchema.Complete(nan))
	assert.False(t, GoldSchema.Complete(missing))
	assert.True(t, MarketSchema.Complete(Observation{Fields: map[string]float64{FieldClose: 3}}))
}

func TestSeriesAccessors(t *testing.T) {
	s := Series{Symbol: "X", Schema: RateSchema, Observations: []Observation{
		{Time: day("2024-01-01"), Fields: map[string]float64{FieldClose: 1}},
		{Time: day("2024-01-02"), Fields: map[string]float64{FieldClose: math.NaN()}},
		{Time: day("2024-01-03"), Fields: map[string]float64{FieldClose: 3}},
	}}

	from, to, ok := s.Coverage()
	require.True(t, ok)
	assert.Equal(t, day("2024-01-01"), from)
	assert.Equal(t, day("2024-01-03"), to)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 3.0, latest.Fields[FieldClose])

	assert.Equal(t, []float64{1, 3}, s.Values(FieldClose))
	assert.Equal(t, 2, s.Window(day("2024-01-02")).Len())
	assert.Equal(t, 1, s.Between(NewDateRange(day("2024-01-03"), day("2024-01-09"))).Len())

	_, _, ok = Series{}.Coverage()
	assert.False(t, ok)
}

func TestDateRangeDays(t *testing.T) {
	r := NewDateRange(day("2024-01-01"), day("2024-01-05"))
	assert.Equal(t, 5, r.Days())
	assert.True(t, r.Contains(day("2024-01-05").Add(23*time.Hour)))
	assert.False(t, r.Contains(day("2024-01-06")))
	assert.Equal(t, 0, NewDateRange(day("2024-01-05"), day("2024-01-01")).Days())
	assert.Equal(t, "2024-01-01..2024-01-05", r.String())
}

func TestParseTimeRange(t *testing.T) {
	now := day("2024-03-31")
	tests := []struct {
		in   string
		want time.Time
		err  bool
	}{
		{"1w", day("2024-03-24"), false},
		{"1M", day("2024-03-01"), false},
		{"1Y", day("2023-04-01"), false},
		{"ALL", time.Time{}, false},
		{"2Y", time.Time{}, true},
	}
	for _, tt := range tests {
		r, err := ParseTimeRange(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, r.Since(now), tt.in)
	}
}
