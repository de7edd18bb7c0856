// Package guidance turns raw trading signals into reviewed
// recommendations, manual execution checklists and a persistent decision
// log with outcome tracking.
package guidance

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
	"github.com/aristath/fks-analytics/internal/signals"
)

const (
	riskScoreHigh   = 5
	riskScoreMedium = 3
)

// Advisor scores signals and maps them to actionable recommendations.
type Advisor struct {
	log zerolog.Logger
}

// NewAdvisor creates an advisor
func NewAdvisor(log zerolog.Logger) *Advisor {
	return &Advisor{log: log.With().Str("component", "advisor").Logger()}
}

// Review applies risk scoring and the bias report to one signal.
func (a *Advisor) Review(sig domain.TradingSignal, report domain.BiasReport) domain.Recommendation {
	score, rationale := riskScore(sig)
	level := riskLevel(score)
	warnings := biasWarnings(sig.Symbol, report)

	rec := domain.Recommendation{
		Signal:       sig,
		RiskScore:    score,
		RiskLevel:    level,
		Rationale:    rationale,
		BiasWarnings: warnings,
		CreatedAt:    time.Now().UTC(),
	}
	rec.Action = decide(sig, level, len(warnings))
	rec.Confidence = finalConfidence(sig.Confidence, level, len(warnings))
	return rec
}

// ReviewAll reviews a batch of signals against one bias report.
func (a *Advisor) ReviewAll(sigs []domain.TradingSignal, report domain.BiasReport) []domain.Recommendation {
	out := make([]domain.Recommendation, len(sigs))
	for i, sig := range sigs {
		out[i] = a.Review(sig, report)
	}
	return out
}

// riskScore accumulates penalty points for everything that makes the
// trade harder to manage.
func riskScore(sig domain.TradingSignal) (int, []string) {
	score := 0
	var rationale []string

	switch {
	case sig.PositionSizePct > 0.02:
		score += 2
		rationale = append(rationale, "position size above 2%")
	case sig.PositionSizePct > 0.015:
		score++
		rationale = append(rationale, "position size above 1.5%")
	}

	switch {
	case sig.RiskReward < 1.5:
		score += 2
		rationale = append(rationale, "risk/reward below 1.5")
	case sig.RiskReward < 2:
		score++
		rationale = append(rationale, "risk/reward below 2")
	}

	if sig.StopLossPct > 5 {
		score++
		rationale = append(rationale, "wide stop loss")
	}

	switch signals.Category(sig.Category) {
	case signals.CategoryScalp:
		score += 2
		rationale = append(rationale, "scalp horizon demands constant attention")
	case signals.CategoryIntraday:
		score++
		rationale = append(rationale, "intraday horizon")
	}

	if sig.Confidence < 0.5 {
		score++
		rationale = append(rationale, "low signal confidence")
	}
	return score, rationale
}

func riskLevel(score int) domain.RiskLevel {
	switch {
	case score >= riskScoreHigh:
		return domain.RiskHigh
	case score >= riskScoreMedium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// biasWarnings collects flags that apply to this symbol or to the whole
// portfolio.
func biasWarnings(symbol string, report domain.BiasReport) []string {
	var warnings []string
	for _, f := range report.Flags {
		if f.Symbol != "" && f.Symbol != symbol {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s (%s): %s", f.Type, f.Severity, f.Evidence))
	}
	return warnings
}

// decide maps risk, strength, confidence and bias pressure to an action.
func decide(sig domain.TradingSignal, level domain.RiskLevel, numWarnings int) domain.Action {
	switch {
	case numWarnings >= 2:
		return domain.ActionAvoid
	case level == domain.RiskHigh && sig.Confidence < 0.6:
		return domain.ActionAvoid
	case level == domain.RiskHigh:
		return domain.ActionHold
	case sig.Strength == domain.StrengthVeryStrong && sig.Confidence >= 0.8:
		return domain.ActionStrongBuy
	case (sig.Strength == domain.StrengthStrong || sig.Strength == domain.StrengthVeryStrong) && sig.Confidence >= 0.6:
		return domain.ActionBuy
	case sig.Strength == domain.StrengthModerate:
		return domain.ActionHold
	default:
		return domain.ActionAvoid
	}
}

// finalConfidence discounts the signal's confidence by risk level and by
// every bias warning attached.
func finalConfidence(confidence float64, level domain.RiskLevel, numWarnings int) float64 {
	multiplier := 1.0
	switch level {
	case domain.RiskHigh:
		multiplier = 0.7
	case domain.RiskMedium:
		multiplier = 0.9
	}

	out := confidence * multiplier * (1 - 0.1*float64(numWarnings))
	if out < 0 {
		return 0
	}
	return out
}
