package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	// tradingDays annualizes daily statistics
	tradingDays = 252.0
	// weightEpsilon zeroes out dust weights after optimization
	weightEpsilon = 1e-4
	// sumTolerance bounds the allowed deviation of the final weight sum from 1
	sumTolerance = 1e-3
	// targetPenalty weighs violations of the efficient frontier targets
	targetPenalty = 1000.0
)

// Bound is an inclusive per-asset weight range
type Bound struct {
	Lower float64
	Upper float64
}

// Method selects the optimization objective.
type Method string

const (
	MethodMaxSharpe       Method = "max_sharpe"
	MethodMinVolatility   Method = "min_volatility"
	MethodEfficientRisk   Method = "efficient_risk"
	MethodEfficientReturn Method = "efficient_return"
)

// Methods lists the supported objectives.
func Methods() []Method {
	return []Method{MethodMaxSharpe, MethodMinVolatility, MethodEfficientRisk, MethodEfficientReturn}
}

// Default targets for the constrained objectives
const (
	DefaultTargetVolatility = 0.20
	DefaultTargetReturn     = 0.15
)

// MeanVarianceConfig parameterizes the optimizer.
type MeanVarianceConfig struct {
	Method           Method
	RiskFreeRate     float64
	TargetVolatility float64 // efficient_risk ceiling, annualized
	TargetReturn     float64 // efficient_return floor, annualized
	BTCSymbol        string
	BTCBound         Bound // hard allocation band for BTC
	AssetBound       Bound // band for every other asset
}

// DefaultMeanVarianceConfig solves for max Sharpe and keeps BTC between
// 50% and 60% with everything else capped at 20%.
func DefaultMeanVarianceConfig() MeanVarianceConfig {
	return MeanVarianceConfig{
		Method:           MethodMaxSharpe,
		RiskFreeRate:     0.02,
		TargetVolatility: DefaultTargetVolatility,
		TargetReturn:     DefaultTargetReturn,
		BTCSymbol:        "BTC",
		BTCBound:         Bound{Lower: 0.50, Upper: 0.60},
		AssetBound:       Bound{Lower: 0.0, Upper: 0.20},
	}
}

// OptimizationResult is a solved portfolio.
type OptimizationResult struct {
	Method         Method             `json:"method"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Sharpe         float64            `json:"sharpe"`
}

// MeanVarianceOptimizer solves a bounded-weight portfolio for one of the
// supported objectives using a penalty formulation.
type MeanVarianceOptimizer struct {
	cfg MeanVarianceConfig
}

// NewMeanVarianceOptimizer creates an optimizer with the given config
func NewMeanVarianceOptimizer(cfg MeanVarianceConfig) *MeanVarianceOptimizer {
	return &MeanVarianceOptimizer{cfg: cfg}
}

// Optimize computes portfolio weights for the configured objective from
// daily return vectors per symbol. Returns are annualized internally. The
// BTC symbol must be present; all return vectors must share the same
// length of at least two.
func (o *MeanVarianceOptimizer) Optimize(returns map[string][]float64) (*OptimizationResult, error) {
	objective, err := o.objective()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(returns))
	for s := range returns {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	n := len(symbols)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 assets, got %d", n)
	}
	if _, ok := returns[o.cfg.BTCSymbol]; !ok {
		return nil, fmt.Errorf("missing required asset %s", o.cfg.BTCSymbol)
	}

	obs := len(returns[symbols[0]])
	if obs < 2 {
		return nil, fmt.Errorf("need at least 2 return observations, got %d", obs)
	}
	for _, s := range symbols {
		if len(returns[s]) != obs {
			return nil, fmt.Errorf("return vector for %s has length %d, expected %d", s, len(returns[s]), obs)
		}
	}

	// Annualized means and covariance
	mu := make([]float64, n)
	for i, s := range symbols {
		mu[i] = stat.Mean(returns[s], nil) * tradingDays
	}

	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(returns[symbols[i]], returns[symbols[j]], nil) * tradingDays
			sigma.SetSym(i, j, cov)
		}
	}

	bounds := make([]Bound, n)
	for i, s := range symbols {
		if s == o.cfg.BTCSymbol {
			bounds[i] = o.cfg.BTCBound
		} else {
			bounds[i] = o.cfg.AssetBound
		}
	}

	weights, err := o.solve(mu, sigma, bounds, objective)
	if err != nil {
		return nil, err
	}

	// Drop dust and renormalize inside bounds
	weights = cleanWeights(weights, bounds)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > sumTolerance {
		return nil, fmt.Errorf("weights sum to %f, outside tolerance", sum)
	}

	result := &OptimizationResult{Method: o.method(), Weights: make(map[string]float64, n)}
	for i, s := range symbols {
		result.Weights[s] = weights[i]
	}

	var portReturn, portVar float64
	for i := 0; i < n; i++ {
		portReturn += mu[i] * weights[i]
		for j := 0; j < n; j++ {
			portVar += weights[i] * weights[j] * sigma.At(i, j)
		}
	}
	result.ExpectedReturn = portReturn
	result.Volatility = math.Sqrt(math.Max(portVar, 0))
	if result.Volatility > 0 {
		result.Sharpe = (portReturn - o.cfg.RiskFreeRate) / result.Volatility
	}
	return result, nil
}

// method resolves the configured objective, defaulting to max Sharpe.
func (o *MeanVarianceOptimizer) method() Method {
	if o.cfg.Method == "" {
		return MethodMaxSharpe
	}
	return o.cfg.Method
}

// objective builds the scalar to minimize over (annualized return,
// volatility) pairs. The constrained objectives carry their target as a
// quadratic penalty on the violating side only.
func (o *MeanVarianceOptimizer) objective() (func(ret, vol float64) float64, error) {
	rf := o.cfg.RiskFreeRate

	switch o.method() {
	case MethodMaxSharpe:
		return func(ret, vol float64) float64 {
			return -(ret - rf) / vol
		}, nil
	case MethodMinVolatility:
		return func(ret, vol float64) float64 {
			return vol
		}, nil
	case MethodEfficientRisk:
		target := o.cfg.TargetVolatility
		if target <= 0 {
			target = DefaultTargetVolatility
		}
		return func(ret, vol float64) float64 {
			excess := math.Max(0, vol-target)
			return -ret + targetPenalty*excess*excess
		}, nil
	case MethodEfficientReturn:
		target := o.cfg.TargetReturn
		if target == 0 {
			target = DefaultTargetReturn
		}
		return func(ret, vol float64) float64 {
			shortfall := math.Max(0, target-ret)
			return vol + targetPenalty*shortfall*shortfall
		}, nil
	}
	return nil, fmt.Errorf("unknown optimization method %q", o.cfg.Method)
}

// solve minimizes the objective with a quadratic penalty holding the
// weight sum at 1, projecting onto bounds.
func (o *MeanVarianceOptimizer) solve(mu []float64, sigma *mat.SymDense, bounds []Bound, objective func(ret, vol float64) float64) ([]float64, error) {
	n := len(mu)
	penaltyWeight := 1000.0

	project := func(x []float64) []float64 {
		proj := make([]float64, n)
		for i := range x {
			proj[i] = math.Max(bounds[i].Lower, math.Min(bounds[i].Upper, x[i]))
		}
		return proj
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := project(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xp[i]
				for j := 0; j < n; j++ {
					variance += xp[i] * xp[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xp[i]
			}

			obj := objective(ret, stdDev)
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
	}

	// Feasible start: bounds' lower edges with the remainder spread evenly
	initial := make([]float64, n)
	remaining := 1.0
	for i := range initial {
		initial[i] = bounds[i].Lower
		remaining -= bounds[i].Lower
	}
	if remaining > 0 {
		for i := range initial {
			headroom := bounds[i].Upper - initial[i]
			add := math.Min(headroom, remaining/float64(n))
			initial[i] += add
		}
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, nil)
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	return project(result.X), nil
}

// cleanWeights zeroes dust weights and rescales the rest toward sum 1
// without leaving the bounds.
func cleanWeights(weights []float64, bounds []Bound) []float64 {
	out := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		if w < weightEpsilon {
			w = 0
		}
		out[i] = w
		sum += w
	}
	if sum <= 0 {
		return out
	}

	// Rescale, clamping back into bounds; a couple of passes converge
	for pass := 0; pass < 3; pass++ {
		sum = 0.0
		for _, w := range out {
			sum += w
		}
		if math.Abs(sum-1.0) <= sumTolerance {
			break
		}
		scale := 1.0 / sum
		for i := range out {
			if out[i] == 0 {
				continue
			}
			out[i] = math.Max(bounds[i].Lower, math.Min(bounds[i].Upper, out[i]*scale))
		}
	}
	return out
}
