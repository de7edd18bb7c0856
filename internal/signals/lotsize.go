package signals

import (
	"math"

	"github.com/aristath/fks-analytics/internal/domain"
)

const (
	standardLotUnits = 100000
	miniLotUnits     = 10000
	microLotUnits    = 1000
)

// Forex lot denominations
const (
	LotStandard = "standard"
	LotMini     = "mini"
	LotMicro    = "micro"
)

// LotSize translates a signal's position size into tradable quantities
// for a given account balance.
type LotSize struct {
	RiskAmount float64 `json:"risk_amount"`
	Units      float64 `json:"units"` // tokens, shares, contracts or currency units

	// Forex positions collapse into the largest denomination the unit
	// count fills; zero/empty for every other class.
	Lots    float64 `json:"lots,omitempty"`
	LotType string  `json:"lot_type,omitempty"`
}

// CalculateLotSize sizes a position so the stop-loss distance risks
// exactly the signal's capital fraction. When the stop sits on the entry
// a 1% price move is assumed. Futures size in currency units like forex
// but trade whole contracts, so no lot denomination applies.
func CalculateLotSize(class domain.AssetClass, balance float64, sig domain.TradingSignal) LotSize {
	// PositionSizePct is a capital fraction (0.02 means 2%)
	risk := balance * sig.PositionSizePct

	diff := math.Abs(sig.EntryPrice - sig.StopLossPrice())
	if diff == 0 {
		diff = sig.EntryPrice * 0.01
	}
	if diff == 0 {
		return LotSize{}
	}

	out := LotSize{
		RiskAmount: risk,
		Units:      risk / diff,
	}
	if class == domain.ClassForex {
		switch {
		case out.Units >= standardLotUnits:
			out.Lots = out.Units / standardLotUnits
			out.LotType = LotStandard
		case out.Units >= miniLotUnits:
			out.Lots = out.Units / miniLotUnits
			out.LotType = LotMini
		default:
			out.Lots = out.Units / microLotUnits
			out.LotType = LotMicro
		}
	}
	return out
}
