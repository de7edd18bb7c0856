package allocation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

// AccountType distinguishes target profiles across accounts
type AccountType string

const (
	AccountPropFirm           AccountType = "prop_firm"
	AccountPersonalTrading    AccountType = "personal_trading"
	AccountLongTermRetirement AccountType = "long_term_retirement"
	AccountLongTermTaxable    AccountType = "long_term_taxable"
)

// Account is one tracked account with its holdings.
type Account struct {
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Positions []Position  `json:"positions"`
}

// AccountSummary is the per-account slice of a combined report.
type AccountSummary struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Report   Report  `json:"report"`
	SharePct float64 `json:"share_pct"` // of combined value
}

// CombinedSummary rolls several accounts into one view.
type CombinedSummary struct {
	TotalValue float64          `json:"total_value"`
	Accounts   []AccountSummary `json:"accounts"`
	Combined   Report           `json:"combined"`
	AsOf       time.Time        `json:"as_of"`
}

// targetsFor returns the class weights for an account type. Trading
// accounts lean on futures and crypto; long-term accounts use the
// standing portfolio targets.
func targetsFor(accountType AccountType) (map[domain.AssetClass]float64, error) {
	switch accountType {
	case AccountPropFirm:
		return map[domain.AssetClass]float64{
			domain.ClassFuture: 40,
			domain.ClassForex:  25,
			domain.ClassCrypto: 25,
			domain.ClassCash:   10,
		}, nil
	case AccountPersonalTrading:
		return map[domain.AssetClass]float64{
			domain.ClassStock:  45,
			domain.ClassOption: 25,
			domain.ClassCrypto: 18,
			domain.ClassFuture: 12,
		}, nil
	case AccountLongTermRetirement, AccountLongTermTaxable:
		return DefaultClassTargets(), nil
	default:
		return nil, fmt.Errorf("unknown account type %q", accountType)
	}
}

// MultiAccountTracker evaluates several accounts, each against the
// targets of its type.
type MultiAccountTracker struct {
	log zerolog.Logger
}

// NewMultiAccountTracker creates a multi-account tracker
func NewMultiAccountTracker(log zerolog.Logger) *MultiAccountTracker {
	return &MultiAccountTracker{log: log.With().Str("component", "multi-allocation").Logger()}
}

// Summarize reports each account against its own targets plus a combined
// view against the standing portfolio targets.
func (m *MultiAccountTracker) Summarize(accounts []Account) (*CombinedSummary, error) {
	summary := &CombinedSummary{AsOf: time.Now().UTC()}

	var allPositions []Position
	for _, account := range accounts {
		targets, err := targetsFor(account.Type)
		if err != nil {
			return nil, err
		}
		tracker := &Tracker{classTargets: targets, overrides: map[string]float64{}, log: m.log}
		report := tracker.Calculate(account.Positions)

		summary.Accounts = append(summary.Accounts, AccountSummary{
			Name:   account.Name,
			Type:   string(account.Type),
			Report: report,
		})
		summary.TotalValue += report.TotalValue
		allPositions = append(allPositions, account.Positions...)
	}

	if summary.TotalValue > 0 {
		for i := range summary.Accounts {
			summary.Accounts[i].SharePct = summary.Accounts[i].Report.TotalValue / summary.TotalValue * 100
		}
	}

	summary.Combined = NewTracker(m.log).Calculate(allPositions)
	return summary, nil
}
