package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

const binanceDefaultBaseURL = "https://api.binance.com"

// BinanceAdapter fetches crypto OHLCV from the Binance public REST API.
// No credentials required. Provider budget is 1200 requests per minute.
type BinanceAdapter struct {
	BaseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewBinanceAdapter creates a Binance market data adapter
func NewBinanceAdapter(log zerolog.Logger) *BinanceAdapter {
	return &BinanceAdapter{
		BaseURL: binanceDefaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1200.0/60.0), 20),
		log:     log.With().Str("adapter", "binance").Logger(),
	}
}

// Name returns the adapter identifier
func (a *BinanceAdapter) Name() string { return "binance" }

// pair maps a bare crypto symbol to its USDT trading pair.
func (a *BinanceAdapter) pair(symbol string) string {
	return symbol + "USDT"
}

// FetchDaily fetches daily klines for the window [start, end].
func (a *BinanceAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", a.pair(symbol))
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", "1000")

	reqURL := a.BaseURL + "/api/v3/klines?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Klines request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Str("symbol", symbol).Msg("Klines request rejected")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// Klines come as arrays of mixed numbers and numeric strings.
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode klines: %v", ErrUnavailable, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(k[0], &openTime); err != nil {
			continue
		}
		open, err1 := parseQuotedFloat(k[1])
		high, err2 := parseQuotedFloat(k[2])
		low, err3 := parseQuotedFloat(k[3])
		closePx, err4 := parseQuotedFloat(k[4])
		volume, err5 := parseQuotedFloat(k[5])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		bars = append(bars, domain.Bar{
			Date:   utcMidnight(time.UnixMilli(openTime)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}
	return bars, nil
}

// FetchQuote fetches the latest trade price for the symbol.
func (a *BinanceAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := a.BaseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(a.pair(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Ticker request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode ticker: %v", ErrUnavailable, err)
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrUnavailable, payload.Price)
	}

	return &domain.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}

func parseQuotedFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Some fields arrive as bare numbers
		var f float64
		if err2 := json.Unmarshal(raw, &f); err2 == nil {
			return f, nil
		}
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
