package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

const alphaVantageDefaultBaseURL = "https://www.alphavantage.co"

// AlphaVantageAdapter fetches stock and ETF data from Alpha Vantage.
// Free tier allows 5 requests per minute; calls are spaced at least
// 12 seconds apart. Requires an API key.
type AlphaVantageAdapter struct {
	BaseURL  string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
	warnOnce sync.Once
}

// NewAlphaVantageAdapter creates an Alpha Vantage market data adapter
func NewAlphaVantageAdapter(apiKey string, log zerolog.Logger) *AlphaVantageAdapter {
	return &AlphaVantageAdapter{
		BaseURL: alphaVantageDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
		log:     log.With().Str("adapter", "alphavantage").Logger(),
	}
}

// Name returns the adapter identifier
func (a *AlphaVantageAdapter) Name() string { return "alphavantage" }

func (a *AlphaVantageAdapter) ready(ctx context.Context) error {
	if a.apiKey == "" {
		a.warnOnce.Do(func() {
			a.log.Warn().Msg("No API key configured, adapter disabled")
		})
		return fmt.Errorf("%w: no api key", ErrUnavailable)
	}
	return a.limiter.Wait(ctx)
}

// FetchDaily fetches the full daily series and trims it to [start, end].
func (a *AlphaVantageAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")
	q.Set("apikey", a.apiKey)

	var payload struct {
		Note   string                       `json:"Note"`
		Error  string                       `json:"Error Message"`
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := a.get(ctx, "/query?"+q.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.Note != "" {
		a.log.Warn().Str("note", payload.Note).Msg("Rate limit note from provider")
		return nil, fmt.Errorf("%w: rate limited", ErrUnavailable)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoData, payload.Error)
	}

	start = utcMidnight(start)
	end = utcMidnight(end)

	var bars []domain.Bar
	for dateStr, fields := range payload.Series {
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		bar, ok := parseAlphaVantageBar(date, fields)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return domain.NewSeries(symbol, bars).Bars, nil
}

func parseAlphaVantageBar(date time.Time, fields map[string]string) (domain.Bar, bool) {
	parse := func(key string) (float64, bool) {
		v, ok := fields[key]
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	open, ok1 := parse("1. open")
	high, ok2 := parse("2. high")
	low, ok3 := parse("3. low")
	closePx, ok4 := parse("4. close")
	volume, _ := parse("5. volume")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return domain.Bar{}, false
	}
	return domain.Bar{Date: date, Open: open, High: high, Low: low, Close: closePx, Volume: volume}, true
}

// FetchQuote fetches the latest global quote for the symbol.
func (a *AlphaVantageAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", a.apiKey)

	var payload struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := a.get(ctx, "/query?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	priceStr, ok := payload.Quote["05. price"]
	if !ok {
		return nil, fmt.Errorf("%w: no quote for %s", ErrNoData, symbol)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrUnavailable, priceStr)
	}

	return &domain.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}

func (a *AlphaVantageAdapter) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Msg("Request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Msg("Request rejected")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}
