// Package formulas holds the small numeric building blocks shared by the
// signal engine and the analytics packages.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility scales the standard deviation of daily returns by
// sqrt(252 trading days).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(252)
}

// CalculateReturns converts prices to percentage returns.
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Covariance calculates the covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// CalculateAnnualReturn computes the compound annual growth rate from
// daily returns: ((1+r1)*(1+r2)*...*(1+rN))^(252/N) - 1. Very short
// series (< 3 days) return the plain cumulative return to avoid extreme
// annualization.
func CalculateAnnualReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= (1 + r)
	}

	numPeriods := float64(len(returns))
	if numPeriods < 3 {
		return cumulative - 1
	}

	years := numPeriods / 252.0
	return math.Pow(cumulative, 1.0/years) - 1
}
