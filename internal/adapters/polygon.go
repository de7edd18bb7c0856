package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/fks-analytics/internal/domain"
)

const polygonDefaultBaseURL = "https://api.polygon.io"

// PolygonAdapter fetches stock aggregates from Polygon.io.
// Free tier allows 5 requests per minute. Requires an API key.
type PolygonAdapter struct {
	BaseURL  string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
	warnOnce sync.Once
}

// NewPolygonAdapter creates a Polygon market data adapter
func NewPolygonAdapter(apiKey string, log zerolog.Logger) *PolygonAdapter {
	return &PolygonAdapter{
		BaseURL: polygonDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5.0/60.0), 1),
		log:     log.With().Str("adapter", "polygon").Logger(),
	}
}

// Name returns the adapter identifier
func (a *PolygonAdapter) Name() string { return "polygon" }

func (a *PolygonAdapter) ready(ctx context.Context) error {
	if a.apiKey == "" {
		a.warnOnce.Do(func() {
			a.log.Warn().Msg("No API key configured, adapter disabled")
		})
		return fmt.Errorf("%w: no api key", ErrUnavailable)
	}
	return a.limiter.Wait(ctx)
}

// FetchDaily fetches daily aggregates for the window [start, end].
func (a *PolygonAdapter) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		url.PathEscape(symbol),
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
		url.QueryEscape(a.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Aggregates request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn().Int("status", resp.StatusCode).Str("symbol", symbol).Msg("Aggregates request rejected")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Timestamp int64   `json:"t"`
			Open      float64 `json:"o"`
			High      float64 `json:"h"`
			Low       float64 `json:"l"`
			Close     float64 `json:"c"`
			Volume    float64 `json:"v"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	bars := make([]domain.Bar, 0, len(payload.Results))
	for _, r := range payload.Results {
		bars = append(bars, domain.Bar{
			Date:   utcMidnight(time.UnixMilli(r.Timestamp)),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}

// FetchQuote fetches the previous close as the latest available price.
// Real-time quotes sit behind a paid plan.
func (a *PolygonAdapter) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev?adjusted=true&apiKey=%s",
		url.PathEscape(symbol), url.QueryEscape(a.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Prev close request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Close     float64 `json:"c"`
			Timestamp int64   `json:"t"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%w: no previous close for %s", ErrNoData, symbol)
	}

	r := payload.Results[0]
	return &domain.Quote{
		Symbol:   symbol,
		Price:    r.Close,
		Currency: "USD",
		AsOf:     time.UnixMilli(r.Timestamp).UTC(),
	}, nil
}
