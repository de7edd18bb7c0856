// Package analytics holds the quantitative engines: correlation analysis,
// mean-variance optimization, tail risk and factor regression.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/fks-analytics/internal/domain"
)

// minOverlap is the smallest number of shared return observations for a
// correlation to be considered defined.
const minOverlap = 2

// CorrelationMatrix is a symmetric matrix of pairwise Pearson correlations.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two symbols, NaN when undefined.
func (m CorrelationMatrix) At(a, b string) float64 {
	ia, ib := -1, -1
	for i, s := range m.Symbols {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN()
	}
	return m.Values[ia][ib]
}

// alignedReturns inner-joins two series on date and returns both return
// vectors over the shared dates.
func alignedReturns(a, b domain.Series) ([]float64, []float64) {
	left, right := a.Align(b)
	return left.Returns(), right.Returns()
}

// Correlation computes the Pearson correlation of two series' daily
// returns over their shared dates. NaN when fewer than two overlapping
// return observations exist.
func Correlation(a, b domain.Series) float64 {
	ra, rb := alignedReturns(a, b)
	if len(ra) < minOverlap || len(rb) < minOverlap {
		return math.NaN()
	}
	return stat.Correlation(ra, rb, nil)
}

// Matrix computes the full pairwise correlation matrix, symbols sorted.
func Matrix(series map[string]domain.Series) CorrelationMatrix {
	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	n := len(symbols)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		values[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			c := Correlation(series[symbols[i]], series[symbols[j]])
			values[i][j] = c
			values[j][i] = c
		}
	}
	return CorrelationMatrix{Symbols: symbols, Values: values}
}

// BTCCorrelations computes each symbol's correlation with the BTC series.
func BTCCorrelations(series map[string]domain.Series, btc domain.Series) map[string]float64 {
	out := make(map[string]float64, len(series))
	for symbol, s := range series {
		if symbol == btc.Symbol {
			continue
		}
		out[symbol] = Correlation(s, btc)
	}
	return out
}

// DiversificationScore is 1 minus the mean absolute off-diagonal
// correlation; higher means better diversified. Undefined pairs are
// excluded from the mean.
func DiversificationScore(m CorrelationMatrix) float64 {
	n := len(m.Symbols)
	if n < 2 {
		return 0
	}

	sum, count := 0.0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			sum += math.Abs(v)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return 1 - sum/float64(count)
}

// OptimizeForDiversification greedily picks n symbols: the seed is the
// symbol with the lowest absolute correlation to BTC, then each step adds
// the symbol with the lowest mean absolute correlation to those already
// selected. Pairs with undefined correlation are treated as excluded
// (they contribute nothing and cannot be seeds).
func OptimizeForDiversification(series map[string]domain.Series, btc domain.Series, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("selection size must be positive, got %d", n)
	}

	btcCorr := BTCCorrelations(series, btc)

	type scored struct {
		symbol string
		corr   float64
	}
	var candidates []scored
	for symbol, c := range btcCorr {
		if math.IsNaN(c) {
			continue
		}
		candidates = append(candidates, scored{symbol: symbol, corr: math.Abs(c)})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no symbols with defined BTC correlation")
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].corr != candidates[j].corr {
			return candidates[i].corr < candidates[j].corr
		}
		return candidates[i].symbol < candidates[j].symbol
	})

	selected := []string{candidates[0].symbol}
	remaining := make(map[string]bool)
	for _, c := range candidates[1:] {
		remaining[c.symbol] = true
	}

	// Pairwise correlations computed once up front
	matrix := Matrix(series)

	for len(selected) < n && len(remaining) > 0 {
		best, bestScore := "", math.Inf(1)

		rest := make([]string, 0, len(remaining))
		for s := range remaining {
			rest = append(rest, s)
		}
		sort.Strings(rest)

		for _, candidate := range rest {
			sum, count := 0.0, 0
			for _, s := range selected {
				c := matrix.At(candidate, s)
				if math.IsNaN(c) {
					continue
				}
				sum += math.Abs(c)
				count++
			}
			score := 0.0
			if count > 0 {
				score = sum / float64(count)
			}
			if score < bestScore {
				best, bestScore = candidate, score
			}
		}
		if best == "" {
			break
		}
		selected = append(selected, best)
		delete(remaining, best)
	}
	return selected, nil
}
