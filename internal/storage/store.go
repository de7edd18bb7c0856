// Package storage persists daily OHLCV bars in SQLite.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/database"
	"github.com/aristath/fks-analytics/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ohlcv (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	adapter TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	UNIQUE(symbol, date, adapter)
);
CREATE INDEX IF NOT EXISTS idx_symbol_date ON ohlcv(symbol, date);
`

// Store reads and writes OHLCV bars. One row per (symbol, date, adapter);
// re-saving the same key replaces the row.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// New creates a store and ensures the schema exists
func New(db *database.DB, log zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create ohlcv schema: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "storage").Logger(),
	}, nil
}

// SaveBars upserts bars for a symbol from one adapter inside a transaction.
func (s *Store) SaveBars(ctx context.Context, symbol, adapter string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO ohlcv (symbol, date, adapter, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			symbol,
			b.Date.UTC().Format("2006-01-02"),
			adapter,
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("upsert bar %s %s: %w", symbol, b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}

	s.log.Debug().Str("symbol", symbol).Str("adapter", adapter).Int("bars", len(bars)).Msg("Saved bars")
	return nil
}

// LoadBars returns bars for symbol in [start, end], one per date. When
// multiple adapters stored the same date, preferredAdapters decides which
// row wins (earlier in the list wins; unknown adapters rank last).
func (s *Store) LoadBars(ctx context.Context, symbol string, start, end time.Time, preferredAdapters []string) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, adapter, open, high, low, close, volume
		FROM ohlcv
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		symbol,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	rank := make(map[string]int, len(preferredAdapters))
	for i, name := range preferredAdapters {
		rank[name] = i
	}
	adapterRank := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return len(preferredAdapters) + 1
	}

	type dated struct {
		bar  domain.Bar
		rank int
	}
	byDate := make(map[string]dated)
	var order []string

	for rows.Next() {
		var dateStr, adapter string
		var b domain.Bar
		if err := rows.Scan(&dateStr, &adapter, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			continue
		}
		b.Date = date

		r := adapterRank(adapter)
		if existing, seen := byDate[dateStr]; seen {
			if r < existing.rank {
				byDate[dateStr] = dated{bar: b, rank: r}
			}
			continue
		}
		byDate[dateStr] = dated{bar: b, rank: r}
		order = append(order, dateStr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	bars := make([]domain.Bar, 0, len(order))
	for _, dateStr := range order {
		bars = append(bars, byDate[dateStr].bar)
	}
	return bars, nil
}

// Coverage returns the fraction of expected weekdays in [start, end] that
// have at least one stored bar for symbol.
func (s *Store) Coverage(ctx context.Context, symbol string, start, end time.Time) (float64, error) {
	expected := weekdaysBetween(start, end)
	if expected == 0 {
		return 0, nil
	}

	var have int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date) FROM ohlcv
		WHERE symbol = ? AND date >= ? AND date <= ?`,
		symbol,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	).Scan(&have)
	if err != nil {
		return 0, fmt.Errorf("count coverage: %w", err)
	}

	coverage := float64(have) / float64(expected)
	if coverage > 1 {
		coverage = 1
	}
	return coverage, nil
}

// LastDate returns the most recent stored date for symbol, or zero time
// when nothing is stored.
func (s *Store) LastDate(ctx context.Context, symbol string) (time.Time, error) {
	var dateStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(date), '') FROM ohlcv WHERE symbol = ?`, symbol,
	).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last date: %w", err)
	}
	if dateStr == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", dateStr, time.UTC)
}

// Symbols returns the distinct symbols present in storage.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM ohlcv ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Count returns the total number of stored bars.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ohlcv`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

// HealthCheck verifies the underlying database is usable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.QuickCheck(ctx)
}

// weekdaysBetween counts Monday-Friday dates in [start, end] inclusive.
func weekdaysBetween(start, end time.Time) int {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return 0
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// Describe returns a short human-readable summary, used by health handlers.
func (s *Store) Describe(ctx context.Context) string {
	symbols, err := s.Symbols(ctx)
	if err != nil {
		return "unavailable"
	}
	count, err := s.Count(ctx)
	if err != nil {
		return "unavailable"
	}
	return fmt.Sprintf("%d bars across %s", count, pluralSymbols(symbols))
}

func pluralSymbols(symbols []string) string {
	if len(symbols) == 1 {
		return symbols[0]
	}
	return fmt.Sprintf("%d symbols", len(symbols))
}
