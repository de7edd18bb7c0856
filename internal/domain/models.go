package domain

import (
	"sort"
	"time"
)

// AssetClass categorizes tradable assets for allocation purposes
type AssetClass string

const (
	ClassCrypto    AssetClass = "crypto"
	ClassStock     AssetClass = "stocks"
	ClassETF       AssetClass = "etfs"
	ClassCommodity AssetClass = "commodities"
	ClassFuture    AssetClass = "futures"
	ClassForex     AssetClass = "forex"
	ClassOption    AssetClass = "options"
	ClassCash      AssetClass = "cash"
)

// Asset describes a symbol tracked by the platform and the data
// providers able to serve it, in preference order.
type Asset struct {
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name"`
	Class    AssetClass `json:"class"`
	Priority int        `json:"priority"`
	Adapters []string   `json:"adapters"`
	Enabled  bool       `json:"enabled"`

	// LastCollected is the collector's per-asset watermark, unset until
	// the first successful collection.
	LastCollected *time.Time `json:"last_collected,omitempty"`
}

// Bar is a single daily OHLCV observation. Date is UTC midnight.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a date-ordered run of bars for one symbol.
// Bars are ascending by date with no duplicates.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Quote is a point-in-time price observation.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
}

// NewSeries builds a Series from bars, sorting by date and dropping
// duplicate dates (last one wins).
func NewSeries(symbol string, bars []Bar) Series {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	deduped := sorted[:0]
	for _, b := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Date.Equal(b.Date) {
			deduped[len(deduped)-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return Series{Symbol: symbol, Bars: deduped}
}

// Closes returns the close prices in date order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Returns computes simple percentage returns between consecutive closes.
// Length is len(Bars)-1; empty when fewer than two bars.
func (s Series) Returns() []float64 {
	if len(s.Bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (s.Bars[i].Close-prev)/prev)
	}
	return returns
}

// Window returns the bars with start <= date <= end.
func (s Series) Window(start, end time.Time) Series {
	var bars []Bar
	for _, b := range s.Bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	return Series{Symbol: s.Symbol, Bars: bars}
}

// Last returns the trailing n bars (or all of them when fewer exist).
func (s Series) Last(n int) Series {
	if n >= len(s.Bars) {
		return s
	}
	return Series{Symbol: s.Symbol, Bars: s.Bars[len(s.Bars)-n:]}
}

// Align inner-joins two series on date, returning equal-length copies
// restricted to the shared dates.
func (s Series) Align(other Series) (Series, Series) {
	dates := make(map[time.Time]bool, len(other.Bars))
	for _, b := range other.Bars {
		dates[b.Date] = true
	}

	var left []Bar
	shared := make(map[time.Time]bool)
	for _, b := range s.Bars {
		if dates[b.Date] {
			left = append(left, b)
			shared[b.Date] = true
		}
	}
	var right []Bar
	for _, b := range other.Bars {
		if shared[b.Date] {
			right = append(right, b)
		}
	}
	return Series{Symbol: s.Symbol, Bars: left}, Series{Symbol: other.Symbol, Bars: right}
}
