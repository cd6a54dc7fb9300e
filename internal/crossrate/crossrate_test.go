package crossrate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceStation/internal/model"
	"PriceStation/internal/store"
)

func day(s string) time.Time {
	t, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func series(symbol string, points ...any) model.Series {
	s := model.Series{Symbol: symbol, Schema: model.MarketSchema}
	for i := 0; i < len(points); i += 2 {
		s.Observations = append(s.Observations, model.Observation{
			Time:   day(points[i].(string)),
			Fields: map[string]float64{model.FieldClose: points[i+1].(float64)},
		})
	}
	return s
}

func TestDeriveInnerJoin(t *testing.T) {
	a := series("USDTWD", "2024-01-01", 2.0, "2024-01-02", 4.0)
	b := series("USDVND", "2024-01-01", 10.0, "2024-01-03", 30.0)

	got := Derive("NTDVND", a, b, model.FieldClose)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, day("2024-01-01"), got.Observations[0].Time)
	assert.Equal(t, 5.0, got.Observations[0].Fields[model.FieldClose])
	assert.Equal(t, model.RateSchema, got.Schema)
}

func TestDeriveSkipsBadDenominators(t *testing.T) {
	a := series("A", "2024-01-01", 0.0, "2024-01-02", math.NaN(), "2024-01-03", 2.0)
	b := series("B", "2024-01-01", 1.0, "2024-01-02", 1.0, "2024-01-03", 3.0)

	got := Derive("C", a, b, model.FieldClose)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 1.5, got.Observations[0].Fields[model.FieldClose])
}

func TestDeriveEmpty(t *testing.T) {
	a := series("A", "2024-01-01", 2.0)
	assert.True(t, Derive("C", a, model.Series{}, model.FieldClose).Empty())
	assert.True(t, Derive("C", model.Series{}, a, model.FieldClose).Empty())
}

func TestDeriveRecordedAtIsLater(t *testing.T) {
	a := series("A", "2024-01-01", 2.0)
	b := series("B", "2024-01-01", 4.0)
	a.Observations[0].RecordedAt = day("2024-01-05")
	b.Observations[0].RecordedAt = day("2024-01-03")

	got := Derive("C", a, b, model.FieldClose)
	assert.Equal(t, day("2024-01-05"), got.Observations[0].RecordedAt)
}

func TestUpdateMergesIntoStore(t *testing.T) {
	st, err := store.New(t.TempDir(), store.Config{})
	require.NoError(t, err)
	st.Register("NTDVND", model.RateSchema)

	_, err = st.Merge("USDTWD", series("USDTWD", "2024-01-01", 32.0, "2024-01-02", 31.0).Observations)
	require.NoError(t, err)
	_, err = st.Merge("USDVND", series("USDVND", "2024-01-01", 24000.0, "2024-01-02", 24180.0).Observations)
	require.NoError(t, err)

	got, err := Update(st, Pair{Symbol: "NTDVND", Denominator: "USDTWD", Numerator: "USDVND"})
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 750.0, got.Observations[0].Fields[model.FieldClose])
	assert.Equal(t, 780.0, got.Observations[1].Fields[model.FieldClose])
	assert.Equal(t, 2, st.Load("NTDVND").Len())
}
