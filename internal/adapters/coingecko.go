package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

const coingeckoDefaultBaseURL = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps ticker symbols to CoinGecko coin ids.
var coingeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"LTC":   "litecoin",
}

// CoinGeckoAdapter fetches crypto prices from the CoinGecko API.
// Works without a key at 30 requests per minute; a demo key raises no limits
// here but is forwarded when configured.
type CoinGeckoAdapter struct {
	BaseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewCoinGeckoAdapter creates a CoinGecko market data adapter
func NewCoinGeckoAdapter(apiKey string, log zerolog.Logger) *CoinGeckoAdapter {
	return &CoinGeckoAdapter{
		BaseURL: coingeckoDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(30.0/60.0), 5),
		log:     log.With().Str("adapter", "coingecko").Logger(),
	}
}

// Name returns the adapter identifier
func (a *CoinGeckoAdapter) Name() string { return "coingecko" }

func (a *CoinGeckoAdapter) coinID(symbol string) (string, error) {
	id, ok := coingeckoIDs[strings.ToUpper(symbol)]
	if !ok {
		return "", fmt.Errorf("%w: unknown coin %s", ErrNoData, symbol)
	}
	return id, nil
}

func (a *CoinGeckoAdapter) get(ctx context.Context, path string, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Request rejected")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

// FetchDaily fetches daily close prices for the window. CoinGecko's range
// endpoint returns price points only, so open/high/low equal the close.
func (a *CoinGeckoAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	id, err := a.coinID(symbol)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("from", fmt.Sprintf("%d", start.Unix()))
	q.Set("to", fmt.Sprintf("%d", end.Unix()))

	var payload struct {
		Prices       [][2]float64 `json:"prices"`
		TotalVolumes [][2]float64 `json:"total_volumes"`
	}
	path := fmt.Sprintf("/coins/%s/market_chart/range?%s", id, q.Encode())
	if err := a.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	volumes := make(map[time.Time]float64, len(payload.TotalVolumes))
	for _, v := range payload.TotalVolumes {
		volumes[utcMidnight(time.UnixMilli(int64(v[0])))] = v[1]
	}

	// Multiple intraday points can map to one date; the last one wins.
	byDate := make(map[time.Time]float64, len(payload.Prices))
	var order []time.Time
	for _, p := range payload.Prices {
		date := utcMidnight(time.UnixMilli(int64(p[0])))
		if _, seen := byDate[date]; !seen {
			order = append(order, date)
		}
		byDate[date] = p[1]
	}

	bars := make([]domain.Bar, 0, len(order))
	for _, date := range order {
		price := byDate[date]
		bars = append(bars, domain.Bar{
			Date:   date,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volumes[date],
		})
	}
	return bars, nil
}

// FetchQuote fetches the current USD price for the symbol.
func (a *CoinGeckoAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	id, err := a.coinID(symbol)
	if err != nil {
		return nil, err
	}

	var payload map[string]map[string]float64
	path := fmt.Sprintf("/simple/price?ids=%s&vs_currencies=usd", url.QueryEscape(id))
	if err := a.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	price, ok := payload[id]["usd"]
	if !ok {
		return nil, fmt.Errorf("%w: no usd price for %s", ErrNoData, symbol)
	}

	return &domain.Quote{
		Symbol:   symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     time.Now().UTC(),
	}, nil
}
