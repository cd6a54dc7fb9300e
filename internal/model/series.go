package model

import (
	"math"
	"sort"
	"time"
)

// Field names shared by the stores, fetchers and alerting.
const (
	FieldBuy    = "buy_price"
	FieldSell   = "sell_price"
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// Schema describes the value columns of a series.
type Schema struct {
	Fields   []string
	Required []string
}

// GoldSchema is the layout of the bank passbook gold series.
var GoldSchema = Schema{
	Fields:   []string{FieldBuy, FieldSell},
	Required: []string{FieldBuy, FieldSell},
}

// MarketSchema is the layout of OHLCV market data.
var MarketSchema = Schema{
	Fields:   []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume},
	Required: []string{FieldClose},
}

// RateSchema is the layout of derived single-value series.
var RateSchema = Schema{
	Fields:   []string{FieldClose},
	Required: []string{FieldClose},
}

// Has reports whether name is one of the schema's fields.
func (s Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Complete reports whether o carries every required field with a real number.
func (s Schema) Complete(o Observation) bool {
	for _, f := range s.Required {
		if _, ok := o.Value(f); !ok {
			return false
		}
	}
	return true
}

// Observation is a single data point of a series.
type Observation struct {
	Time       time.Time
	Fields     map[string]float64
	RecordedAt time.Time
}

// Value returns the named field, false when absent or NaN.
func (o Observation) Value(name string) (float64, bool) {
	v, ok := o.Fields[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Series is an ordered sequence of observations for one symbol.
type Series struct {
	Symbol       string
	Schema       Schema
	Observations []Observation
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Observations) }

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.Observations) == 0 }

// Coverage returns the first and last observation time.
func (s Series) Coverage() (from, to time.Time, ok bool) {
	if s.Empty() {
		return time.Time{}, time.Time{}, false
	}
	return s.Observations[0].Time, s.Observations[len(s.Observations)-1].Time, true
}

// Latest returns the last observation.
func (s Series) Latest() (Observation, bool) {
	if s.Empty() {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}

// Previous returns the observation before the latest one.
func (s Series) Previous() (Observation, bool) {
	if len(s.Observations) < 2 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-2], true
}

// Values extracts the real values of field, skipping missing ones.
func (s Series) Values(field string) []float64 {
	out := make([]float64, 0, len(s.Observations))
	for _, o := range s.Observations {
		if v, ok := o.Value(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// Window returns the observations at or after since. A zero since keeps everything.
func (s Series) Window(since time.Time) Series {
	if since.IsZero() {
		return s
	}
	i := sort.Search(len(s.Observations), func(i int) bool {
		return !s.Observations[i].Time.Before(since)
	})
	out := s
	out.Observations = s.Observations[i:]
	return out
}

// Between returns the observations whose day lies in r.
func (s Series) Between(r DateRange) Series {
	out := s
	out.Observations = nil
	for _, o := range s.Observations {
		if r.Contains(o.Time) {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

// SortByTime stably sorts observations ascending by time.
func SortByTime(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time.Before(obs[j].Time) })
}
