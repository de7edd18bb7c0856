// Package converter expresses asset values in BTC terms.
package converter

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

// TotalKey is the aggregate entry in portfolio conversion results
const TotalKey = "_total"

// QuoteFetcher is the slice of the router the converter needs
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Converter converts USD-quoted asset amounts into BTC.
type Converter struct {
	quotes QuoteFetcher
	log    zerolog.Logger
}

// PortfolioValue is a portfolio expressed in BTC terms.
type PortfolioValue struct {
	Values map[string]float64 `json:"values"` // per symbol plus "_total"
	Errors []string           `json:"errors,omitempty"`
}

// New creates a converter
func New(quotes QuoteFetcher, log zerolog.Logger) *Converter {
	return &Converter{
		quotes: quotes,
		log:    log.With().Str("component", "btc_converter").Logger(),
	}
}

// btcPrice fetches and validates the current BTC price.
func (c *Converter) btcPrice(ctx context.Context) (float64, error) {
	quote, err := c.quotes.FetchQuote(ctx, "BTC")
	if err != nil {
		return 0, fmt.Errorf("fetch BTC quote: %w", err)
	}
	if quote.Price <= 0 {
		return 0, fmt.Errorf("invalid BTC price %f", quote.Price)
	}
	return quote.Price, nil
}

// ToBTC converts amount units of symbol into BTC using current quotes.
func (c *Converter) ToBTC(ctx context.Context, amount float64, symbol string) (float64, error) {
	if symbol == "BTC" {
		return amount, nil
	}

	btc, err := c.btcPrice(ctx)
	if err != nil {
		return 0, err
	}

	quote, err := c.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch %s quote: %w", symbol, err)
	}

	return amount * quote.Price / btc, nil
}

// PortfolioInBTC converts a holdings map (symbol -> units) into per-symbol
// BTC values plus a "_total" aggregate. The BTC price is fetched once for
// the whole batch. Symbols that fail contribute 0 and are reported in
// Errors; one failure never aborts the batch.
func (c *Converter) PortfolioInBTC(ctx context.Context, holdings map[string]float64) PortfolioValue {
	result := PortfolioValue{Values: make(map[string]float64, len(holdings)+1)}

	symbols := make([]string, 0, len(holdings))
	needsBTCPrice := false
	for symbol := range holdings {
		symbols = append(symbols, symbol)
		if symbol != "BTC" {
			needsBTCPrice = true
		}
	}
	sort.Strings(symbols)

	var btc float64
	var btcErr error
	if needsBTCPrice {
		btc, btcErr = c.btcPrice(ctx)
	}

	total := 0.0
	for _, symbol := range symbols {
		if symbol == "BTC" {
			result.Values[symbol] = holdings[symbol]
			total += holdings[symbol]
			continue
		}

		value, err := 0.0, btcErr
		if err == nil {
			var quote *domain.Quote
			quote, err = c.quotes.FetchQuote(ctx, symbol)
			if err != nil {
				err = fmt.Errorf("fetch %s quote: %w", symbol, err)
			} else {
				value = holdings[symbol] * quote.Price / btc
			}
		}
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Conversion failed, counting as zero")
			result.Values[symbol] = 0.0
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", symbol, err))
			continue
		}
		result.Values[symbol] = value
		total += value
	}
	result.Values[TotalKey] = total
	return result
}
