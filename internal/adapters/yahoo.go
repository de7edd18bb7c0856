package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

// YahooAdapter fetches stock, ETF and commodity data through Yahoo Finance.
// No credentials required; budget is a conservative 200 requests per minute.
type YahooAdapter struct {
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewYahooAdapter creates a Yahoo Finance market data adapter
func NewYahooAdapter(log zerolog.Logger) *YahooAdapter {
	return &YahooAdapter{
		limiter: rate.NewLimiter(rate.Limit(200.0/60.0), 10),
		log:     log.With().Str("adapter", "yahoofinance").Logger(),
	}
}

// Name returns the adapter identifier
func (a *YahooAdapter) Name() string { return "yahoofinance" }

// periodFor picks the smallest library period covering the window.
func periodFor(start, end time.Time) string {
	days := int(end.Sub(start).Hours()/24) + 1
	switch {
	case days <= 5:
		return "5d"
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 731:
		return "2y"
	case days <= 1830:
		return "5y"
	default:
		return "max"
	}
}

// FetchDaily fetches daily history and trims it to [start, end].
func (a *YahooAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to create ticker")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     periodFor(start, end),
		Interval:   "1d",
		AutoAdjust: true,
	}

	history, err := t.History(params)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("History request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	start = utcMidnight(start)
	end = utcMidnight(end)

	bars := make([]domain.Bar, 0, len(history))
	for _, h := range history {
		date := utcMidnight(h.Date)
		if date.Before(start) || date.After(end) {
			continue
		}
		bars = append(bars, domain.Bar{
			Date:   date,
			Open:   h.Open,
			High:   h.High,
			Low:    h.Low,
			Close:  h.Close,
			Volume: float64(h.Volume),
		})
	}
	return domain.NewSeries(symbol, bars).Bars, nil
}

// FetchQuote fetches the current market price for the symbol.
func (a *YahooAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to create ticker")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer t.Close()

	quote, err := t.Quote()
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	price := quote.RegularMarketPrice
	if price <= 0 && quote.PreMarketPrice > 0 {
		price = quote.PreMarketPrice
	}
	if price <= 0 && quote.PostMarketPrice > 0 {
		price = quote.PostMarketPrice
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: no valid price for %s", ErrNoData, symbol)
	}

	return &domain.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}
