package guidance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

const decisionsFile = "decisions.json"

// DecisionLog is an append-only JSON file of trade decisions. Outcomes
// are updated in place, keyed on symbol and signal timestamp.
type DecisionLog struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewDecisionLog stores decisions under dir/decisions.json, creating the
// directory when missing.
func NewDecisionLog(dir string, log zerolog.Logger) (*DecisionLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating decision log directory: %w", err)
	}
	return &DecisionLog{
		path: filepath.Join(dir, decisionsFile),
		log:  log.With().Str("component", "decision-log").Logger(),
	}, nil
}

// Append records a new decision, assigning its ID and log time.
func (l *DecisionLog) Append(rec domain.DecisionRecord) (domain.DecisionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return domain.DecisionRecord{}, err
	}

	rec.ID = uuid.NewString()
	rec.LoggedAt = time.Now().UTC()
	if rec.Outcome == "" {
		rec.Outcome = domain.OutcomeOpen
	}
	records = append(records, rec)

	if err := l.write(records); err != nil {
		return domain.DecisionRecord{}, err
	}
	l.log.Info().Str("symbol", rec.Symbol).Str("action", string(rec.Action)).Msg("Decision logged")
	return rec, nil
}

// History returns every logged decision, oldest first.
func (l *DecisionLog) History() ([]domain.DecisionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// UpdateOutcome resolves the decision matching symbol and signal
// timestamp.
func (l *DecisionLog) UpdateOutcome(symbol string, signalTimestamp time.Time, outcome domain.Outcome, pnlBTC float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].Symbol == symbol && records[i].SignalTimestamp.Equal(signalTimestamp) {
			records[i].Outcome = outcome
			records[i].PnLBTC = pnlBTC
			return l.write(records)
		}
	}
	return fmt.Errorf("no decision for %s at %s", symbol, signalTimestamp.Format(time.RFC3339))
}

// Performance summarizes resolved decisions over a trailing window.
type Performance struct {
	Days        int     `json:"days"`
	Total       int     `json:"total"`
	Executed    int     `json:"executed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Open        int     `json:"open"`
	WinRate     float64 `json:"win_rate"`
	TotalPnLBTC float64 `json:"total_pnl_btc"`
}

// Performance computes win rate and cumulative PnL over the last N days.
func (l *DecisionLog) Performance(days int) (Performance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return Performance{}, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	perf := Performance{Days: days}
	for _, rec := range records {
		if rec.LoggedAt.Before(cutoff) {
			continue
		}
		perf.Total++
		if rec.Executed {
			perf.Executed++
		}
		switch rec.Outcome {
		case domain.OutcomeWin:
			perf.Wins++
			perf.TotalPnLBTC += rec.PnLBTC
		case domain.OutcomeLoss:
			perf.Losses++
			perf.TotalPnLBTC += rec.PnLBTC
		default:
			perf.Open++
		}
	}
	if resolved := perf.Wins + perf.Losses; resolved > 0 {
		perf.WinRate = float64(perf.Wins) / float64(resolved)
	}
	return perf, nil
}

func (l *DecisionLog) read() ([]domain.DecisionRecord, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []domain.DecisionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt decision log: %w", err)
	}
	return records, nil
}

func (l *DecisionLog) write(records []domain.DecisionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}
