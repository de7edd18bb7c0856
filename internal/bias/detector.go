// Package bias inspects recent trading behavior and the current book for
// patterns that degrade decision quality.
package bias

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

const (
	lossFractionMedium = 0.02
	lossFractionHigh   = 0.05
	winStreakMedium    = 5
	winStreakHigh      = 8
	anchorFraction     = 0.20
	oversizeFactor     = 1.5
)

// Detector evaluates decision history and positions for behavioral bias.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a bias detector
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{log: log.With().Str("component", "bias-detector").Logger()}
}

// Analyze runs every bias rule. positions maps symbol to current value,
// recommended maps symbol to the advised capital fraction (may be nil).
func (d *Detector) Analyze(history []domain.DecisionRecord, positions map[string]float64, recommended map[string]float64) domain.BiasReport {
	report := domain.BiasReport{CheckedAt: time.Now().UTC()}

	total := 0.0
	for _, v := range positions {
		total += v
	}

	report.Flags = append(report.Flags, d.lossAversion(history, total)...)
	report.Flags = append(report.Flags, d.overconfidence(history, positions, recommended, total)...)
	report.Flags = append(report.Flags, d.anchoring(positions, total)...)

	report.Overall = assess(report.Flags)
	if report.Overall != domain.AssessmentOK {
		d.log.Info().Str("overall", string(report.Overall)).Int("flags", len(report.Flags)).
			Msg("Bias detected")
	}
	return report
}

// lossAversion flags a book that has realized outsized losses relative to
// its size; traders tend to hold losers longer after such runs.
func (d *Detector) lossAversion(history []domain.DecisionRecord, total float64) []domain.BiasFlag {
	if total <= 0 {
		return nil
	}

	losses := 0.0
	for _, rec := range history {
		if rec.Outcome == domain.OutcomeLoss && rec.PnLBTC < 0 {
			losses += -rec.PnLBTC
		}
	}
	fraction := losses / total

	var severity domain.Severity
	switch {
	case fraction > lossFractionHigh:
		severity = domain.SeverityHigh
	case fraction > lossFractionMedium:
		severity = domain.SeverityMedium
	default:
		return nil
	}
	return []domain.BiasFlag{{
		Type:     domain.BiasLossAversion,
		Severity: severity,
		Evidence: fmt.Sprintf("realized losses are %.1f%% of portfolio value", fraction*100),
	}}
}

// overconfidence flags long winning streaks and positions sized well past
// their recommendation.
func (d *Detector) overconfidence(history []domain.DecisionRecord, positions, recommended map[string]float64, total float64) []domain.BiasFlag {
	var flags []domain.BiasFlag

	streak := winStreak(history)
	switch {
	case streak >= winStreakHigh:
		flags = append(flags, domain.BiasFlag{
			Type:     domain.BiasOverconfidence,
			Severity: domain.SeverityHigh,
			Evidence: fmt.Sprintf("%d consecutive wins", streak),
		})
	case streak >= winStreakMedium:
		flags = append(flags, domain.BiasFlag{
			Type:     domain.BiasOverconfidence,
			Severity: domain.SeverityMedium,
			Evidence: fmt.Sprintf("%d consecutive wins", streak),
		})
	}

	if total > 0 {
		symbols := sortedKeys(positions)
		for _, symbol := range symbols {
			rec, ok := recommended[symbol]
			if !ok || rec <= 0 {
				continue
			}
			actual := positions[symbol] / total
			if actual > oversizeFactor*rec {
				flags = append(flags, domain.BiasFlag{
					Type:     domain.BiasOverconfidence,
					Severity: domain.SeverityMedium,
					Symbol:   symbol,
					Evidence: fmt.Sprintf("position is %.1fx the recommended size", actual/rec),
				})
			}
		}
	}
	return flags
}

// anchoring flags any single position dominating the portfolio.
func (d *Detector) anchoring(positions map[string]float64, total float64) []domain.BiasFlag {
	if total <= 0 {
		return nil
	}

	var flags []domain.BiasFlag
	for _, symbol := range sortedKeys(positions) {
		fraction := positions[symbol] / total
		if fraction > anchorFraction {
			flags = append(flags, domain.BiasFlag{
				Type:     domain.BiasAnchoring,
				Severity: domain.SeverityHigh,
				Symbol:   symbol,
				Evidence: fmt.Sprintf("position is %.1f%% of portfolio", fraction*100),
			})
		}
	}
	return flags
}

// winStreak counts the run of wins ending at the most recent resolved
// decision. Open decisions are skipped.
func winStreak(history []domain.DecisionRecord) int {
	resolved := make([]domain.DecisionRecord, 0, len(history))
	for _, rec := range history {
		if rec.Outcome != domain.OutcomeOpen {
			resolved = append(resolved, rec)
		}
	}
	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].LoggedAt.After(resolved[j].LoggedAt)
	})

	streak := 0
	for _, rec := range resolved {
		if rec.Outcome != domain.OutcomeWin {
			break
		}
		streak++
	}
	return streak
}

func assess(flags []domain.BiasFlag) domain.BiasAssessment {
	if len(flags) == 0 {
		return domain.AssessmentOK
	}
	worst := domain.SeverityLow
	for _, f := range flags {
		switch f.Severity {
		case domain.SeverityHigh:
			return domain.AssessmentAvoidTrading
		case domain.SeverityMedium:
			worst = domain.SeverityMedium
		}
	}
	if worst == domain.SeverityMedium {
		return domain.AssessmentReducePosition
	}
	return domain.AssessmentCaution
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
