package calculator

import (
	"errors"
	"math"
)

// CalculateRange returns the high and low of the most recent lookback prices.
// A lookback of zero or less scans everything.
func CalculateRange(prices []float64, lookback int) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	start := 0
	if lookback > 0 && len(prices) > lookback {
		start = len(prices) - lookback
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range prices[start:] {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits between low and high (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
