package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

const coinMarketCapDefaultBaseURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCapAdapter fetches crypto quotes from the CoinMarketCap API.
// Historical OHLCV sits behind a paid tier, so only quotes are served.
// Requires an API key; without one the adapter degrades to empty results.
type CoinMarketCapAdapter struct {
	BaseURL  string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
	warnOnce sync.Once
}

// NewCoinMarketCapAdapter creates a CoinMarketCap quote adapter
func NewCoinMarketCapAdapter(apiKey string, log zerolog.Logger) *CoinMarketCapAdapter {
	return &CoinMarketCapAdapter{
		BaseURL: coinMarketCapDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(30.0/60.0), 5),
		log:     log.With().Str("adapter", "coinmarketcap").Logger(),
	}
}

// Name returns the adapter identifier
func (a *CoinMarketCapAdapter) Name() string { return "coinmarketcap" }

// FetchDaily is not offered on the free tier.
func (a *CoinMarketCapAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	return nil, fmt.Errorf("%w: historical bars need a paid plan", ErrUnsupported)
}

// FetchQuote fetches the latest USD quote for the symbol.
func (a *CoinMarketCapAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if a.apiKey == "" {
		a.warnOnce.Do(func() {
			a.log.Warn().Msg("No API key configured, quotes disabled")
		})
		return nil, fmt.Errorf("%w: no api key", ErrUnavailable)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)
	reqURL := a.BaseURL + "/v2/cryptocurrency/quotes/latest?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Str("symbol", symbol).Msg("Quote request rejected")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Data map[string][]struct {
			Symbol string `json:"symbol"`
			Quote  map[string]struct {
				Price       float64   `json:"price"`
				LastUpdated time.Time `json:"last_updated"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	entries, ok := payload.Data[symbol]
	if !ok || len(entries) == 0 {
		return nil, fmt.Errorf("%w: no quote for %s", ErrNoData, symbol)
	}
	usd, ok := entries[0].Quote["USD"]
	if !ok {
		return nil, fmt.Errorf("%w: no usd quote for %s", ErrNoData, symbol)
	}

	asOf := usd.LastUpdated
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return &domain.Quote{
		Symbol:   symbol,
		Price:    usd.Price,
		Currency: "USD",
		AsOf:     asOf,
	}, nil
}
