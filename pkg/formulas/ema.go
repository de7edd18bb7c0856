package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateEMA returns the current exponential moving average of the
// closes. With fewer closes than the period it degrades to a simple mean,
// so short histories still produce a usable value.
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) == 0 {
		return nil
	}

	if len(closes) < length {
		sma := Mean(closes)
		return &sma
	}

	ema := talib.Ema(closes, length)
	if len(ema) > 0 && !math.IsNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}

	// Fallback to SMA of the last 'length' prices
	sma := Mean(closes[len(closes)-length:])
	return &sma
}

// CalculateSMA returns the current simple moving average, or nil when
// there are fewer closes than the period.
func CalculateSMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateDistanceFromEMA returns (price - EMA) / EMA for the most recent
// close. Positive when price sits above the average.
func CalculateDistanceFromEMA(closes []float64, length int) *float64 {
	if len(closes) == 0 {
		return nil
	}

	ema := CalculateEMA(closes, length)
	if ema == nil || *ema == 0 {
		return nil
	}

	distance := (closes[len(closes)-1] - *ema) / *ema
	return &distance
}
