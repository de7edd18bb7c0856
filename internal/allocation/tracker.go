// Package allocation compares the current book against target weights and
// derives rebalancing actions, both for a single portfolio and across
// several accounts.
package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

// rebalanceThresholdPct is the drift, in percentage points, past which a
// class or symbol triggers a rebalance action.
const rebalanceThresholdPct = 5.0

// Position is a holding with its class and current value.
type Position struct {
	Symbol string            `json:"symbol"`
	Class  domain.AssetClass `json:"class"`
	Value  float64           `json:"value"`
}

// Entry is one row of an allocation report.
type Entry struct {
	Name       string  `json:"name"` // asset class or override symbol
	CurrentPct float64 `json:"current_pct"`
	TargetPct  float64 `json:"target_pct"`
	DiffPct    float64 `json:"diff_pct"`
	Value      float64 `json:"value"`
}

// Report is the full allocation picture for one portfolio.
type Report struct {
	TotalValue float64   `json:"total_value"`
	Classes    []Entry   `json:"classes"`
	Overrides  []Entry   `json:"overrides"`
	DriftPct   float64   `json:"drift_pct"`
	AsOf       time.Time `json:"as_of"`
}

// RebalanceAction is one trade suggested to bring the book back on
// target. Amount is in portfolio value terms.
type RebalanceAction struct {
	Name    string  `json:"name"`
	Action  string  `json:"action"` // BUY or SELL
	DiffPct float64 `json:"diff_pct"`
	Amount  float64 `json:"amount"`
}

// Tracker holds the target weights.
type Tracker struct {
	classTargets map[domain.AssetClass]float64
	overrides    map[string]float64
	log          zerolog.Logger
}

// DefaultClassTargets returns the standing class weights in percent.
func DefaultClassTargets() map[domain.AssetClass]float64 {
	return map[domain.AssetClass]float64{
		domain.ClassStock:     50,
		domain.ClassETF:       15,
		domain.ClassCommodity: 15,
		domain.ClassCrypto:    10,
		domain.ClassFuture:    5,
		domain.ClassCash:      5,
	}
}

// DefaultOverrides returns the per-symbol weight caps in percent.
func DefaultOverrides() map[string]float64 {
	return map[string]float64{
		"AAPL": 10,
		"COST": 8,
		"HD":   7,
	}
}

// NewTracker creates a tracker with the default targets.
func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		classTargets: DefaultClassTargets(),
		overrides:    DefaultOverrides(),
		log:          log.With().Str("component", "allocation").Logger(),
	}
}

// Targets exposes the configured class targets.
func (t *Tracker) Targets() map[domain.AssetClass]float64 {
	out := make(map[domain.AssetClass]float64, len(t.classTargets))
	for k, v := range t.classTargets {
		out[k] = v
	}
	return out
}

// Calculate builds the allocation report for the given positions.
func (t *Tracker) Calculate(positions []Position) Report {
	report := Report{AsOf: time.Now().UTC()}

	classValues := make(map[domain.AssetClass]float64)
	symbolValues := make(map[string]float64)
	for _, p := range positions {
		report.TotalValue += p.Value
		classValues[p.Class] += p.Value
		symbolValues[p.Symbol] += p.Value
	}

	classes := make([]domain.AssetClass, 0, len(t.classTargets))
	for c := range t.classTargets {
		classes = append(classes, c)
	}
	// Untargeted classes present in the book still show up with target 0
	for c := range classValues {
		if _, ok := t.classTargets[c]; !ok {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	for _, c := range classes {
		entry := Entry{Name: string(c), TargetPct: t.classTargets[c], Value: classValues[c]}
		if report.TotalValue > 0 {
			entry.CurrentPct = classValues[c] / report.TotalValue * 100
		}
		entry.DiffPct = entry.CurrentPct - entry.TargetPct
		report.Classes = append(report.Classes, entry)
		report.DriftPct += math.Abs(entry.DiffPct)
	}

	symbols := make([]string, 0, len(t.overrides))
	for s := range t.overrides {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		entry := Entry{Name: s, TargetPct: t.overrides[s], Value: symbolValues[s]}
		if report.TotalValue > 0 {
			entry.CurrentPct = symbolValues[s] / report.TotalValue * 100
		}
		entry.DiffPct = entry.CurrentPct - entry.TargetPct
		report.Overrides = append(report.Overrides, entry)
	}
	return report
}

// CheckRebalancing lists the classes and override symbols drifted past
// the threshold, with the value to move back.
func (t *Tracker) CheckRebalancing(positions []Position) []RebalanceAction {
	report := t.Calculate(positions)

	var actions []RebalanceAction
	appendAction := func(e Entry) {
		if math.Abs(e.DiffPct) <= rebalanceThresholdPct {
			return
		}
		action := "BUY"
		if e.DiffPct > 0 {
			action = "SELL"
		}
		actions = append(actions, RebalanceAction{
			Name:    e.Name,
			Action:  action,
			DiffPct: e.DiffPct,
			Amount:  math.Abs(e.DiffPct) / 100 * report.TotalValue,
		})
	}

	for _, e := range report.Classes {
		appendAction(e)
	}
	// Override targets are caps: only being over them calls for action
	for _, e := range report.Overrides {
		if e.DiffPct > 0 {
			appendAction(e)
		}
	}
	return actions
}

// Drift returns the total absolute class drift in percentage points.
func (t *Tracker) Drift(positions []Position) float64 {
	return t.Calculate(positions).DriftPct
}
