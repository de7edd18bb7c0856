// Package assets maintains the configurable universe of tracked symbols.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

// Registry is a JSON-file-backed set of tracked assets.
type Registry struct {
	mu     sync.RWMutex
	path   string
	assets map[string]domain.Asset
	log    zerolog.Logger
}

// Defaults returns the built-in asset universe.
func Defaults() []domain.Asset {
	return []domain.Asset{
		{Symbol: "BTC", Name: "Bitcoin", Class: domain.ClassCrypto, Priority: 1, Adapters: []string{"binance", "coingecko", "coinmarketcap"}, Enabled: true},
		{Symbol: "ETH", Name: "Ethereum", Class: domain.ClassCrypto, Priority: 1, Adapters: []string{"binance", "coingecko", "coinmarketcap"}, Enabled: true},
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF", Class: domain.ClassETF, Priority: 1, Adapters: []string{"yahoofinance", "alphavantage", "polygon"}, Enabled: true},
		{Symbol: "SOL", Name: "Solana", Class: domain.ClassCrypto, Priority: 2, Adapters: []string{"binance", "coingecko"}, Enabled: true},
		{Symbol: "BNB", Name: "BNB", Class: domain.ClassCrypto, Priority: 2, Adapters: []string{"binance", "coingecko"}, Enabled: true},
		{Symbol: "QQQ", Name: "Invesco QQQ ETF", Class: domain.ClassETF, Priority: 2, Adapters: []string{"yahoofinance", "alphavantage", "polygon"}, Enabled: true},
		{Symbol: "ADA", Name: "Cardano", Class: domain.ClassCrypto, Priority: 3, Adapters: []string{"binance", "coingecko"}, Enabled: true},
		{Symbol: "AVAX", Name: "Avalanche", Class: domain.ClassCrypto, Priority: 3, Adapters: []string{"binance", "coingecko"}, Enabled: true},
		{Symbol: "MATIC", Name: "Polygon", Class: domain.ClassCrypto, Priority: 3, Adapters: []string{"binance", "coingecko"}, Enabled: true},
	}
}

// New creates a registry backed by path. An existing file is loaded;
// otherwise the defaults are written out.
func New(path string, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		path:   path,
		assets: make(map[string]domain.Asset),
		log:    log.With().Str("component", "assets").Logger(),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var loaded []domain.Asset
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parse asset registry %s: %w", path, err)
		}
		for _, a := range loaded {
			r.assets[a.Symbol] = a
		}
	case os.IsNotExist(err):
		for _, a := range Defaults() {
			r.assets[a.Symbol] = a
		}
		if err := r.save(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read asset registry %s: %w", path, err)
	}

	return r, nil
}

// save persists the registry; callers must hold at least a read lock.
func (r *Registry) save() error {
	list := r.sortedLocked()
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal asset registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create asset registry dir: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write asset registry: %w", err)
	}
	return nil
}

func (r *Registry) sortedLocked() []domain.Asset {
	list := make([]domain.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].Symbol < list[j].Symbol
	})
	return list
}

// All returns every asset, priority then symbol ordered.
func (r *Registry) All() []domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// Enabled returns enabled assets, priority then symbol ordered.
func (r *Registry) Enabled() []domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []domain.Asset
	for _, a := range r.sortedLocked() {
		if a.Enabled {
			list = append(list, a)
		}
	}
	return list
}

// Get returns the asset for symbol
func (r *Registry) Get(symbol string) (domain.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[symbol]
	return a, ok
}

// Upsert adds or replaces an asset and persists the registry.
func (r *Registry) Upsert(a domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.Symbol] = a
	return r.save()
}

// SetLastCollected records the collection watermark for symbol and
// persists the registry.
func (r *Registry) SetLastCollected(symbol string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assets[symbol]
	if !ok {
		return fmt.Errorf("unknown asset %s", symbol)
	}
	a.LastCollected = &t
	r.assets[symbol] = a
	return r.save()
}

// SetEnabled toggles an asset and persists the registry.
func (r *Registry) SetEnabled(symbol string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assets[symbol]
	if !ok {
		return fmt.Errorf("unknown asset %s", symbol)
	}
	a.Enabled = enabled
	r.assets[symbol] = a
	return r.save()
}

// AdaptersFor returns the preferred adapter order for symbol. Unknown
// symbols fall back to a class guess: known crypto tickers route to the
// crypto providers, everything else to the equity providers.
func (r *Registry) AdaptersFor(symbol string) []string {
	if a, ok := r.Get(symbol); ok && len(a.Adapters) > 0 {
		out := make([]string, len(a.Adapters))
		copy(out, a.Adapters)
		return out
	}
	if IsCryptoSymbol(symbol) {
		return []string{"binance", "coingecko", "coinmarketcap"}
	}
	return []string{"yahoofinance", "alphavantage", "polygon"}
}

// knownCrypto covers the tickers the platform treats as crypto without
// registry configuration.
var knownCrypto = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "BNB": true, "ADA": true,
	"AVAX": true, "MATIC": true, "DOT": true, "LINK": true, "XRP": true,
	"DOGE": true, "LTC": true,
}

// IsCryptoSymbol reports whether symbol is a known crypto ticker.
func IsCryptoSymbol(symbol string) bool {
	return knownCrypto[symbol]
}
