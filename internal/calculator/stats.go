package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"PriceStation/internal/model"
)

// Summary is the descriptive statistics of one field over a window.
type Summary struct {
	Symbol    string
	Field     string
	Count     int
	First     decimal.Decimal
	Current   decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
	Avg       decimal.Decimal
	Change    decimal.Decimal
	ChangePct decimal.Decimal
	Position  float64 // current within [Min, Max]
	SMA20     float64
	HasSMA20  bool
	RSI14     float64
	Trend     Trend
}

// Stats summarizes field over the series. Missing values are skipped.
func Stats(s model.Series, field string) (Summary, error) {
	prices := s.Values(field)
	if len(prices) == 0 {
		return Summary{}, errors.New("no data for statistics")
	}

	sum := decimal.Zero
	min := decimal.NewFromFloat(prices[0])
	max := min
	for _, p := range prices {
		d := decimal.NewFromFloat(p)
		sum = sum.Add(d)
		if d.LessThan(min) {
			min = d
		}
		if d.GreaterThan(max) {
			max = d
		}
	}

	first := decimal.NewFromFloat(prices[0])
	current := decimal.NewFromFloat(prices[len(prices)-1])
	out := Summary{
		Symbol:  s.Symbol,
		Field:   field,
		Count:   len(prices),
		First:   first,
		Current: current,
		Min:     min,
		Max:     max,
		Avg:     sum.Div(decimal.NewFromInt(int64(len(prices)))),
		Change:  current.Sub(first),
	}
	if !first.IsZero() {
		out.ChangePct = out.Change.Div(first).Mul(decimal.NewFromInt(100))
	}

	out.Position, _ = RangePosition(current.InexactFloat64(), max.InexactFloat64(), min.InexactFloat64())
	if sma, err := CalculateSMA(prices, 20); err == nil {
		out.SMA20, out.HasSMA20 = sma, true
	}
	out.RSI14, _ = CalculateRSI(prices, 14)
	out.Trend = ClassifyTrend(prices)
	return out, nil
}

// ChangePercent returns (current-prev)/prev*100, false when prev is zero.
func ChangePercent(current, prev float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	c := decimal.NewFromFloat(current)
	p := decimal.NewFromFloat(prev)
	return c.Sub(p).Div(p).Mul(decimal.NewFromInt(100)).InexactFloat64(), true
}
