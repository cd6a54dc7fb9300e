package alert

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceStation/internal/catalog"
	"PriceStation/internal/model"
	"PriceStation/internal/store"
)

type quotes map[string]Quote

func (q quotes) Quote(symbol string) (Quote, bool) {
	v, ok := q[symbol]
	return v, ok
}

var t0 = time.Date(2024, 3, 11, 1, 15, 0, 0, time.UTC)

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, Rule{Symbol: "BTC"}.Validate())
	assert.NoError(t, Rule{Symbol: "Gold", Type: TypePriceTarget, TargetPrice: 2500, Direction: "above"}.Validate())
	assert.Error(t, Rule{}.Validate())
	assert.Error(t, Rule{Symbol: "Gold", Type: TypePriceTarget, TargetPrice: 2500}.Validate())
	assert.Error(t, Rule{Symbol: "Gold", Type: "volume"}.Validate())
	assert.Equal(t, DefaultThreshold, Rule{Symbol: "BTC"}.Threshold())
	assert.Equal(t, "BTC_fluctuation", Rule{Symbol: "BTC"}.StateKey())
}

func TestCheckFluctuationSuppressed(t *testing.T) {
	state := LoadState(filepath.Join(t.TempDir(), "alert_state.json"))
	q := quotes{"BTC": {Symbol: "BTC", Price: 103, Prev: 100, HasPrev: true, Time: t0}}
	e := NewEngine(state, q)
	rules := []Rule{{Symbol: "BTC", Type: TypeFluctuation}}

	fired := e.Check(rules)
	require.Len(t, fired, 1)
	assert.Equal(t, TypeFluctuation, fired[0].Kind)
	assert.InDelta(t, 3.0, fired[0].ChangePct, 1e-9)
	assert.Equal(t, "2024-03-11T01:15:00Z", state.Get("BTC_fluctuation"))

	assert.Empty(t, e.Check(rules), "same observation does not alert twice")

	q["BTC"] = Quote{Symbol: "BTC", Price: 103.5, Prev: 103, HasPrev: true, Time: t0.Add(15 * time.Minute)}
	assert.Empty(t, e.Check(rules), "below threshold")
}

func TestCheckPriceTarget(t *testing.T) {
	state := LoadState("")
	q := quotes{"Gold": {Symbol: "Gold", Price: 2510, Prev: 2500, HasPrev: true, Time: t0}}
	e := NewEngine(state, q)

	fired := e.Check([]Rule{
		{Symbol: "Gold", Type: TypePriceTarget, TargetPrice: 2505, Direction: "above"},
		{Symbol: "Gold", Type: TypePriceTarget, TargetPrice: 2000, Direction: "below"},
	})
	require.Len(t, fired, 1)
	assert.Equal(t, TypePriceTarget, fired[0].Kind)
	assert.Equal(t, 2505.0, fired[0].Rule.TargetPrice)
}

func TestCheckSkipsMissingPrevious(t *testing.T) {
	e := NewEngine(LoadState(""), quotes{"X": {Symbol: "X", Price: 10, Time: t0}})
	assert.Empty(t, e.Check([]Rule{{Symbol: "X", AbnormalityThreshold: 0.1}, {Symbol: "missing"}}))
}

func TestStatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_state.json")
	require.NoError(t, LoadState(path).Set("Gold_fluctuation", "2024-03-11T00:00:00Z"))

	again := LoadState(path)
	assert.Equal(t, "2024-03-11T00:00:00Z", again.Get("Gold_fluctuation"))
	assert.Equal(t, []string{"Gold_fluctuation"}, again.Keys())
}

func TestStateScratch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert_state.json")
	s := LoadState(path)
	require.NoError(t, s.Set("a", "1"))

	scratch := s.Scratch()
	assert.Equal(t, "1", scratch.Get("a"))
	require.NoError(t, scratch.Set("b", "2"))
	assert.Empty(t, s.Get("b"))
	assert.Equal(t, []string{"a"}, LoadState(path).Keys())
}

func TestSummaryDue(t *testing.T) {
	e := NewEngine(LoadState(""), quotes{})
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	_, due := e.SummaryDue(day.Add(time.Hour))
	assert.False(t, due, "before the first slot")

	slot, due := e.SummaryDue(day.Add(2*time.Hour + time.Minute))
	require.True(t, due)
	assert.Equal(t, "morning", slot)

	_, due = e.SummaryDue(day.Add(3 * time.Hour))
	assert.False(t, due, "once per slot")

	slot, due = e.SummaryDue(day.Add(10 * time.Hour))
	require.True(t, due)
	assert.Equal(t, "afternoon", slot, "latest passed slot wins")
	_, due = e.SummaryDue(day.Add(11 * time.Hour))
	assert.False(t, due, "skipped noon slot is not sent late")

	slot, due = e.SummaryDue(day.AddDate(0, 0, 1).Add(5 * time.Hour))
	require.True(t, due)
	assert.Equal(t, "noon", slot)
}

func TestStoreQuotes(t *testing.T) {
	st, err := store.New(t.TempDir(), store.Config{})
	require.NoError(t, err)
	st.Register("Gold", model.GoldSchema)
	_, err = st.Merge("Gold", []model.Observation{
		{Time: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), Fields: map[string]float64{model.FieldBuy: 2040, model.FieldSell: 2065}},
		{Time: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), Fields: map[string]float64{model.FieldBuy: 2060, model.FieldSell: 2085}},
	})
	require.NoError(t, err)

	q, ok := StoreQuotes{Store: st, Catalog: catalog.Default()}.Quote("Gold")
	require.True(t, ok)
	assert.Equal(t, 2085.0, q.Price)
	assert.Equal(t, 2065.0, q.Prev)
	assert.True(t, q.Gold)

	_, ok = StoreQuotes{Store: st, Catalog: catalog.Default()}.Quote("BTC")
	assert.False(t, ok)
}
