package signals

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/pkg/formulas"
)

const (
	// lookbackBars is how much history the indicator snapshot uses
	lookbackBars = 30
	// minBars is the floor below which no signal is produced
	minBars = 20
	// minRiskReward rejects trades with poor payoff asymmetry
	minRiskReward = 1.5
	// maxPositionSize caps the per-trade capital fraction
	maxPositionSize = 0.02

	rsiPeriod = 14

	trendUp      = "up"
	trendDown    = "down"
	trendNeutral = "neutral"
)

// Indicators is the technical snapshot driving a signal decision.
type Indicators struct {
	RSI           float64 `json:"rsi"`
	SMA20         float64 `json:"sma_20"`
	SMA50         float64 `json:"sma_50"`
	EMA12         float64 `json:"ema_12"`
	EMA26         float64 `json:"ema_26"`
	MACD          float64 `json:"macd"`
	PricePosition float64 `json:"price_position"`
	Volatility    float64 `json:"volatility"`
	Trend         string  `json:"trend"`
}

// Map flattens the snapshot into the numeric form signals and the
// analysis service carry.
func (i *Indicators) Map() map[string]float64 {
	return map[string]float64{
		"rsi":            i.RSI,
		"sma_20":         i.SMA20,
		"sma_50":         i.SMA50,
		"ema_12":         i.EMA12,
		"ema_26":         i.EMA26,
		"macd":           i.MACD,
		"price_position": i.PricePosition,
		"volatility":     i.Volatility,
	}
}

// Engine evaluates price series into trading signals.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a signal engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "signal-engine").Logger()}
}

// Snapshot computes the indicator set over the trailing lookback window.
// Returns nil when there is not enough history.
func (e *Engine) Snapshot(series domain.Series) *Indicators {
	recent := series.Last(lookbackBars)
	closes := recent.Closes()
	if len(closes) < minBars {
		e.log.Debug().Str("symbol", series.Symbol).Int("bars", len(closes)).
			Msg("Not enough history for indicators")
		return nil
	}

	ind := &Indicators{Trend: trendNeutral}

	rsi := talib.Rsi(closes, rsiPeriod)
	if len(rsi) > 0 && !math.IsNaN(rsi[len(rsi)-1]) {
		ind.RSI = rsi[len(rsi)-1]
	} else {
		ind.RSI = 50
	}

	if sma := formulas.CalculateSMA(closes, 20); sma != nil {
		ind.SMA20 = *sma
	}
	// The lookback window rarely holds 50 bars; the SMA degrades to the
	// mean of whatever is available
	if sma := formulas.CalculateSMA(closes, 50); sma != nil {
		ind.SMA50 = *sma
	} else {
		ind.SMA50 = formulas.Mean(closes)
	}

	ind.EMA12 = *formulas.CalculateEMA(closes, 12)
	ind.EMA26 = *formulas.CalculateEMA(closes, 26)
	ind.MACD = ind.EMA12 - ind.EMA26

	low, high := closes[0], closes[0]
	for _, c := range closes {
		low = math.Min(low, c)
		high = math.Max(high, c)
	}
	if high > low {
		ind.PricePosition = (closes[len(closes)-1] - low) / (high - low)
	} else {
		ind.PricePosition = 0.5
	}

	ind.Volatility = formulas.AnnualizedVolatility(formulas.CalculateReturns(closes))

	if ind.SMA20 > ind.SMA50 {
		ind.Trend = trendUp
	} else if ind.SMA20 < ind.SMA50 {
		ind.Trend = trendDown
	}
	return ind
}

// Evaluate produces a trading signal for the series under the given
// horizon, or nil when no trade is warranted.
func (e *Engine) Evaluate(series domain.Series, cfg CategoryConfig) *domain.TradingSignal {
	ind := e.Snapshot(series)
	if ind == nil {
		return nil
	}

	side, rationale := chooseSide(ind)
	if side == "" {
		return nil
	}

	tp := scaleToBand(cfg.TakeProfit, ind.Volatility)
	sl := scaleToBand(cfg.StopLoss, ind.Volatility)
	if sl <= 0 {
		return nil
	}
	riskReward := tp / sl
	if riskReward < minRiskReward {
		e.log.Debug().Str("symbol", series.Symbol).Float64("rr", riskReward).
			Msg("Signal rejected on risk/reward")
		return nil
	}

	entry := series.Bars[len(series.Bars)-1].Close
	now := time.Now().UTC()

	signal := &domain.TradingSignal{
		ID:              uuid.NewString(),
		Symbol:          series.Symbol,
		Side:            side,
		Category:        string(cfg.Name),
		EntryPrice:      entry,
		TakeProfitPct:   tp,
		StopLossPct:     sl,
		RiskReward:      riskReward,
		PositionSizePct: math.Min(maxPositionSize, sl/100),
		Rationale:       rationale,
		Indicators:      ind.Map(),
		CreatedAt:       now,
		ExpiresAt:       now.Add(cfg.MaxHold),
	}
	signal.Strength = gradeStrength(ind, riskReward)
	signal.Confidence = scoreConfidence(ind, riskReward)
	return signal
}

// chooseSide applies the decision ladder: RSI extremes first, then MACD
// confirmed by trend, then the bare trend. Empty side means no trade.
func chooseSide(ind *Indicators) (domain.Side, []string) {
	switch {
	case ind.RSI < 30:
		return domain.SideBuy, []string{"RSI oversold"}
	case ind.RSI > 70:
		return domain.SideSell, []string{"RSI overbought"}
	case ind.MACD > 0 && ind.Trend == trendUp:
		return domain.SideBuy, []string{"MACD positive in uptrend"}
	case ind.MACD < 0 && ind.Trend == trendDown:
		return domain.SideSell, []string{"MACD negative in downtrend"}
	case ind.Trend == trendUp:
		return domain.SideBuy, []string{"uptrend"}
	case ind.Trend == trendDown:
		return domain.SideSell, []string{"downtrend"}
	}
	return "", nil
}

// scaleToBand places a value inside the band according to volatility:
// calm markets sit near the bottom, volatile ones climb toward the top.
// Without a volatility estimate the midpoint is used.
func scaleToBand(b Band, volatility float64) float64 {
	if volatility <= 0 {
		return b.Midpoint()
	}
	scale := math.Min(volatility/0.3, 2.0) * 0.5
	return b.Min + (b.Max-b.Min)*scale
}

func countConfirmations(ind *Indicators, riskReward float64) int {
	n := 0
	if ind.RSI < 30 || ind.RSI > 70 {
		n++
	}
	if ind.MACD != 0 {
		n++
	}
	if ind.Trend != trendNeutral {
		n++
	}
	if riskReward >= 2 {
		n++
	}
	return n
}

func gradeStrength(ind *Indicators, riskReward float64) domain.Strength {
	switch n := countConfirmations(ind, riskReward); {
	case n >= 3:
		return domain.StrengthVeryStrong
	case n >= 2:
		return domain.StrengthStrong
	default:
		return domain.StrengthModerate
	}
}

func scoreConfidence(ind *Indicators, riskReward float64) float64 {
	confidence := 0.5

	switch {
	case ind.RSI < 20 || ind.RSI > 80:
		confidence += 0.2
	case ind.RSI < 30 || ind.RSI > 70:
		confidence += 0.1
	}
	switch {
	case riskReward >= 3:
		confidence += 0.2
	case riskReward >= 2:
		confidence += 0.1
	}
	if ind.Trend != trendNeutral {
		confidence += 0.1
	}
	return math.Min(confidence, 1.0)
}
