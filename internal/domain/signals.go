package domain

import "time"

// Side is the direction of a trading signal
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Strength grades a signal by the number of confirming indicators
type Strength string

const (
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// TradingSignal is a fully specified trade suggestion
type TradingSignal struct {
	ID              string             `json:"id"`
	Symbol          string             `json:"symbol"`
	Side            Side               `json:"side"`
	Category        string             `json:"category"`
	EntryPrice      float64            `json:"entry_price"`
	TakeProfitPct   float64            `json:"take_profit_pct"`
	StopLossPct     float64            `json:"stop_loss_pct"`
	RiskReward      float64            `json:"risk_reward"`
	PositionSizePct float64            `json:"position_size_pct"`
	Strength        Strength           `json:"strength"`
	Confidence      float64            `json:"confidence"`
	Indicators      map[string]float64 `json:"indicators"`
	Rationale       []string           `json:"rationale"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

// TakeProfitPrice converts the percentage target into an absolute price.
func (s TradingSignal) TakeProfitPrice() float64 {
	if s.Side == SideSell {
		return s.EntryPrice * (1 - s.TakeProfitPct/100)
	}
	return s.EntryPrice * (1 + s.TakeProfitPct/100)
}

// StopLossPrice converts the percentage stop into an absolute price.
func (s TradingSignal) StopLossPrice() float64 {
	if s.Side == SideSell {
		return s.EntryPrice * (1 + s.StopLossPct/100)
	}
	return s.EntryPrice * (1 - s.StopLossPct/100)
}

// BiasType identifies a behavioral bias pattern
type BiasType string

const (
	BiasLossAversion   BiasType = "loss_aversion"
	BiasOverconfidence BiasType = "overconfidence"
	BiasAnchoring      BiasType = "anchoring"
)

// Severity ranks a bias flag
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// BiasFlag is one detected bias with supporting evidence
type BiasFlag struct {
	Type     BiasType `json:"type"`
	Severity Severity `json:"severity"`
	Symbol   string   `json:"symbol,omitempty"`
	Evidence string   `json:"evidence"`
}

// BiasAssessment is the overall trading posture derived from flags
type BiasAssessment string

const (
	AssessmentOK             BiasAssessment = "OK"
	AssessmentCaution        BiasAssessment = "CAUTION"
	AssessmentReducePosition BiasAssessment = "REDUCE_POSITION_SIZE"
	AssessmentAvoidTrading   BiasAssessment = "AVOID_TRADING"
)

// BiasReport aggregates detected flags into an overall assessment
type BiasReport struct {
	Flags     []BiasFlag     `json:"flags"`
	Overall   BiasAssessment `json:"overall"`
	CheckedAt time.Time      `json:"checked_at"`
}

// HighSeveritySymbols returns the symbols carrying a high severity flag.
// Flags without a symbol apply portfolio-wide and are excluded here.
func (r BiasReport) HighSeveritySymbols() map[string]bool {
	out := make(map[string]bool)
	for _, f := range r.Flags {
		if f.Severity == SeverityHigh && f.Symbol != "" {
			out[f.Symbol] = true
		}
	}
	return out
}

// Action is the final recommendation for a signal
type Action string

const (
	ActionStrongBuy Action = "STRONG_BUY"
	ActionBuy       Action = "BUY"
	ActionHold      Action = "HOLD"
	ActionAvoid     Action = "AVOID"
)

// RiskLevel buckets the decision risk score
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Recommendation is a signal with decision support applied
type Recommendation struct {
	Signal       TradingSignal `json:"signal"`
	Action       Action        `json:"action"`
	RiskScore    int           `json:"risk_score"`
	RiskLevel    RiskLevel     `json:"risk_level"`
	Confidence   float64       `json:"confidence"`
	Rationale    []string      `json:"rationale"`
	BiasWarnings []string      `json:"bias_warnings"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Outcome is the resolution of an executed decision
type Outcome string

const (
	OutcomeOpen Outcome = "open"
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// DecisionRecord is one logged trade decision and its eventual outcome
type DecisionRecord struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	SignalTimestamp time.Time `json:"signal_timestamp"`
	Action          Action    `json:"action"`
	Category        string    `json:"category"`
	EntryPrice      float64   `json:"entry_price"`
	PositionSizePct float64   `json:"position_size_pct"`
	Executed        bool      `json:"executed"`
	ExecutedAt      time.Time `json:"executed_at,omitempty"`
	Outcome         Outcome   `json:"outcome"`
	PnLBTC          float64   `json:"pnl_btc"`
	Notes           string    `json:"notes,omitempty"`
	LoggedAt        time.Time `json:"logged_at"`
}
