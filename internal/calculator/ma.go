package calculator

import "errors"

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the moving average ending at each index. Entries without
// a full window are left zero with ok false.
func RollingSMA(prices []float64, period int) (values []float64, ok []bool) {
	values = make([]float64, len(prices))
	ok = make([]bool, len(prices))
	if period <= 0 {
		return values, ok
	}
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			values[i] = sum / float64(period)
			ok[i] = true
		}
	}
	return values, ok
}
