package calculator

import "math"

// Trend is the moving-average alignment of a price series.
type Trend string

const (
	TrendUnknown  Trend = ""
	TrendBull     Trend = "多頭排列"
	TrendBullHigh Trend = "多頭排列+30日新高"
	TrendBear     Trend = "空頭排列"
	TrendBearLow  Trend = "空頭排列+30日新低"
	TrendRange    Trend = "盤整"
)

// ClassifyTrend compares the latest price with SMA20 and SMA50.
// Price > SMA20 > SMA50 is bullish, the reverse bearish; a price within 1% of
// the 30-observation extreme in the same direction is flagged. Fewer than 50
// prices yield TrendUnknown.
func ClassifyTrend(prices []float64) Trend {
	sma20, err := CalculateSMA(prices, 20)
	if err != nil {
		return TrendUnknown
	}
	sma50, err := CalculateSMA(prices, 50)
	if err != nil {
		return TrendUnknown
	}
	high, low, _ := CalculateRange(prices, 30)
	current := prices[len(prices)-1]

	near := func(a, b float64) bool { return b != 0 && math.Abs(a-b)/b < 0.01 }
	switch {
	case current > sma20 && sma20 > sma50:
		if near(current, high) {
			return TrendBullHigh
		}
		return TrendBull
	case current < sma20 && sma20 < sma50:
		if near(current, low) {
			return TrendBearLow
		}
		return TrendBear
	default:
		return TrendRange
	}
}
