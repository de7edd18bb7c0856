package signals

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

const (
	fileDateLayout    = "20060102"
	signalFilePrefix  = "signals_"
	summaryFilePrefix = "daily_signals_summary_"
	performanceDir    = "performance"
)

// Store persists generated signals, daily summaries and performance
// snapshots as JSON files under the signals directory.
type Store struct {
	dir string
	log zerolog.Logger
	mu  sync.Mutex
}

// NewStore creates the signals directory tree if needed.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, performanceDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating signals directory: %w", err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "signal-store").Logger()}, nil
}

// Dir returns the root directory of the store
func (s *Store) Dir() string { return s.dir }

func (s *Store) signalPath(category Category, date time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%s_%s.json", signalFilePrefix, category, date.Format(fileDateLayout)))
}

// Save writes the signals for one category and day, replacing any
// previous file for that pair.
func (s *Store) Save(category Category, date time.Time, sigs []domain.TradingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFile(s.signalPath(category, date), sigs)
}

// Load reads the signals for one category and day. A missing file is an
// empty result, not an error.
func (s *Store) Load(category Category, date time.Time) ([]domain.TradingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sigs []domain.TradingSignal
	err := readJSONFile(s.signalPath(category, date), &sigs)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return sigs, err
}

// SizedSignal is a stored signal enriched with account-relative lot sizes
// and an entry plan for the next session.
type SizedSignal struct {
	domain.TradingSignal
	Lots  LotSize   `json:"lots"`
	Entry EntryPlan `json:"entry"`
}

// LoadSized loads a day's signals and sizes each one against the given
// account balance. classFor resolves the asset class per symbol.
func (s *Store) LoadSized(category Category, date time.Time, balance float64, classFor func(string) domain.AssetClass) ([]SizedSignal, error) {
	sigs, err := s.Load(category, date)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]SizedSignal, len(sigs))
	for i, sig := range sigs {
		class := classFor(sig.Symbol)
		out[i] = SizedSignal{
			TradingSignal: sig,
			Lots:          CalculateLotSize(class, balance, sig),
			Entry:         BuildEntryPlan(class, sig, now),
		}
	}
	return out, nil
}

// Summary aggregates one day of generated signals.
type Summary struct {
	Date          string         `json:"date"`
	TotalSignals  int            `json:"total_signals"`
	ByCategory    map[string]int `json:"by_category"`
	BySide        map[string]int `json:"by_side"`
	AvgConfidence float64        `json:"avg_confidence"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// BuildSummary folds per-category signal lists into a daily summary.
func BuildSummary(date time.Time, byCategory map[Category][]domain.TradingSignal) Summary {
	summary := Summary{
		Date:        date.Format("2006-01-02"),
		ByCategory:  make(map[string]int),
		BySide:      make(map[string]int),
		GeneratedAt: time.Now().UTC(),
	}

	confidenceSum := 0.0
	for category, sigs := range byCategory {
		summary.ByCategory[string(category)] = len(sigs)
		for _, sig := range sigs {
			summary.TotalSignals++
			summary.BySide[string(sig.Side)]++
			confidenceSum += sig.Confidence
		}
	}
	if summary.TotalSignals > 0 {
		summary.AvgConfidence = confidenceSum / float64(summary.TotalSignals)
	}
	return summary
}

func (s *Store) summaryPath(date time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%s.json", summaryFilePrefix, date.Format(fileDateLayout)))
}

// SaveSummary writes the daily summary file.
func (s *Store) SaveSummary(date time.Time, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONFile(s.summaryPath(date), summary)
}

// LoadSummary reads the daily summary for a date. A missing file returns
// nil without error, mirroring Load.
func (s *Store) LoadSummary(date time.Time) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary Summary
	err := readJSONFile(s.summaryPath(date), &summary)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// SavePerformance writes a performance snapshot under performance/.
func (s *Store) SavePerformance(date time.Time, snapshot any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, performanceDir, fmt.Sprintf("performance_%s.json", date.Format(fileDateLayout)))
	return writeJSONFile(path, snapshot)
}

// Days lists the dates, ascending, for which any signal file exists.
func (s *Store) Days() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, signalFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		idx := strings.LastIndex(base, "_")
		if idx < 0 {
			continue
		}
		if d, err := time.Parse(fileDateLayout, base[idx+1:]); err == nil {
			seen[d.Format("2006-01-02")] = true
		}
	}

	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	return days, nil
}

// Prune deletes signal and summary files older than maxAge, returning how
// many were removed. Performance snapshots are kept.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !strings.HasPrefix(name, signalFilePrefix) && !strings.HasPrefix(name, summaryFilePrefix) {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		idx := strings.LastIndex(base, "_")
		if idx < 0 {
			continue
		}
		fileDate, err := time.Parse(fileDateLayout, base[idx+1:])
		if err != nil || !fileDate.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("Failed to prune signal file")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Pruned old signal files")
	}
	return removed, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
