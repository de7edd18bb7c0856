package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minFactorObservations gates the regression; fewer rows give unstable
// estimates.
const minFactorObservations = 30

// FactorExposure is one estimated factor loading with its significance.
type FactorExposure struct {
	Beta   float64 `json:"beta"`
	TStat  float64 `json:"t_stat"`
	PValue float64 `json:"p_value"`
}

// FactorModel is a fitted linear factor regression for one asset.
type FactorModel struct {
	Symbol       string                    `json:"symbol"`
	Alpha        float64                   `json:"alpha"` // annualized intercept
	AlphaTStat   float64                   `json:"alpha_t_stat"`
	Exposures    map[string]FactorExposure `json:"exposures"`
	R2           float64                   `json:"r2"`
	AdjR2        float64                   `json:"adj_r2"`
	AIC          float64                   `json:"aic"`
	BIC          float64                   `json:"bic"`
	Observations int                       `json:"observations"`

	factors   []string
	betas     []float64
	residVar  float64
	factorCov *mat.SymDense
}

// RiskDecomposition splits annualized return variance into the part
// explained by factor exposures and the idiosyncratic remainder.
type RiskDecomposition struct {
	TotalVariance  float64 `json:"total_variance"`
	FactorVariance float64 `json:"factor_variance"`
	IdioVariance   float64 `json:"idio_variance"`
	FactorShare    float64 `json:"factor_share"`
}

// FitFactorModel regresses an asset's daily returns on factor return
// vectors by ordinary least squares. All vectors must share one length of
// at least 30 observations.
func FitFactorModel(symbol string, assetReturns []float64, factorReturns map[string][]float64) (*FactorModel, error) {
	n := len(assetReturns)
	if n < minFactorObservations {
		return nil, fmt.Errorf("need at least %d observations, got %d", minFactorObservations, n)
	}
	if len(factorReturns) == 0 {
		return nil, fmt.Errorf("no factors provided")
	}

	factors := make([]string, 0, len(factorReturns))
	for f := range factorReturns {
		factors = append(factors, f)
	}
	sort.Strings(factors)

	for _, f := range factors {
		if len(factorReturns[f]) != n {
			return nil, fmt.Errorf("factor %s has %d observations, expected %d", f, len(factorReturns[f]), n)
		}
	}

	k := len(factors)
	p := k + 1 // intercept plus loadings
	if n <= p {
		return nil, fmt.Errorf("too many factors (%d) for %d observations", k, n)
	}

	// Design matrix with an intercept column
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, f := range factors {
			x.Set(i, j+1, factorReturns[f][i])
		}
	}
	y := mat.NewVecDense(n, assetReturns)

	var qr mat.QR
	qr.Factorize(x)
	coef := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(coef, false, y); err != nil {
		return nil, fmt.Errorf("regression failed: %w", err)
	}

	// Residuals and fit statistics
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, coef)

	rss := 0.0
	for i := 0; i < n; i++ {
		r := assetReturns[i] - fitted.AtVec(i)
		rss += r * r
	}
	meanY := stat.Mean(assetReturns, nil)
	tss := 0.0
	for _, v := range assetReturns {
		d := v - meanY
		tss += d * d
	}

	df := float64(n - p)
	residVar := rss / df

	// Standard errors from the inverse of X'X
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("singular design matrix: %w", err)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	tStat := func(j int) (float64, float64) {
		se := math.Sqrt(residVar * xtxInv.At(j, j))
		if se == 0 {
			return 0, 1
		}
		t := coef.AtVec(j) / se
		pv := 2 * tDist.Survival(math.Abs(t))
		return t, pv
	}

	model := &FactorModel{
		Symbol:       symbol,
		Exposures:    make(map[string]FactorExposure, k),
		Observations: n,
		factors:      factors,
		betas:        make([]float64, k),
		residVar:     residVar,
	}

	alphaT, _ := tStat(0)
	model.Alpha = coef.AtVec(0) * tradingDays
	model.AlphaTStat = alphaT

	for j, f := range factors {
		t, pv := tStat(j + 1)
		model.Exposures[f] = FactorExposure{Beta: coef.AtVec(j + 1), TStat: t, PValue: pv}
		model.betas[j] = coef.AtVec(j + 1)
	}

	if tss > 0 {
		model.R2 = 1 - rss/tss
	}
	model.AdjR2 = 1 - (1-model.R2)*float64(n-1)/df

	logLikeTerm := float64(n) * math.Log(rss/float64(n))
	model.AIC = logLikeTerm + 2*float64(p)
	model.BIC = logLikeTerm + float64(p)*math.Log(float64(n))

	// Factor covariance retained for risk decomposition
	cov := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, stat.Covariance(factorReturns[factors[i]], factorReturns[factors[j]], nil))
		}
	}
	model.factorCov = cov

	return model, nil
}

// DecomposeRisk splits the asset's annualized variance into the systematic
// part implied by the fitted loadings and the idiosyncratic residual.
func (m *FactorModel) DecomposeRisk() RiskDecomposition {
	k := len(m.betas)
	factorVar := 0.0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			factorVar += m.betas[i] * m.betas[j] * m.factorCov.At(i, j)
		}
	}
	factorVar *= tradingDays
	idioVar := m.residVar * tradingDays
	total := factorVar + idioVar

	d := RiskDecomposition{
		TotalVariance:  total,
		FactorVariance: factorVar,
		IdioVariance:   idioVar,
	}
	if total > 0 {
		d.FactorShare = factorVar / total
	}
	return d
}
