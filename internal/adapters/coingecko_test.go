package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoAdapter_FetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart/range", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))

		_, _ = w.Write([]byte(`{
			"prices": [[1704153600000, 42000.0], [1704196800000, 42200.0], [1704240000000, 43500.0]],
			"total_volumes": [[1704153600000, 100.0], [1704240000000, 200.0]]
		}`))
	}))
	defer server.Close()

	adapter := NewCoinGeckoAdapter("", zerolog.Nop())
	adapter.BaseURL = server.URL

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	bars, err := adapter.FetchDaily(context.Background(), "BTC", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	// Two intraday points on Jan 2 collapse to one bar, last price wins
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 42200.0, bars[0].Close)
	assert.Equal(t, 100.0, bars[0].Volume)
	assert.Equal(t, 43500.0, bars[1].Close)
}

func TestCoinGeckoAdapter_FetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		_, _ = w.Write([]byte(`{"ethereum": {"usd": 2300.25}}`))
	}))
	defer server.Close()

	adapter := NewCoinGeckoAdapter("demo-key", zerolog.Nop())
	adapter.BaseURL = server.URL

	quote, err := adapter.FetchQuote(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 2300.25, quote.Price)
}

func TestCoinGeckoAdapter_UnknownCoin(t *testing.T) {
	adapter := NewCoinGeckoAdapter("", zerolog.Nop())

	_, err := adapter.FetchQuote(context.Background(), "NOTACOIN")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCoinMarketCapAdapter_NoKeyDegrades(t *testing.T) {
	adapter := NewCoinMarketCapAdapter("", zerolog.Nop())

	_, err := adapter.FetchQuote(context.Background(), "BTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCoinMarketCapAdapter_FetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		_, _ = w.Write([]byte(`{
			"data": {"BTC": [{"symbol": "BTC", "quote": {"USD": {"price": 45000.5, "last_updated": "2024-01-02T12:00:00Z"}}}]}
		}`))
	}))
	defer server.Close()

	adapter := NewCoinMarketCapAdapter("test-key", zerolog.Nop())
	adapter.BaseURL = server.URL

	quote, err := adapter.FetchQuote(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "BTC", quote.Symbol)
	assert.Equal(t, 45000.5, quote.Price)
}

func TestCoinMarketCapAdapter_DailyUnsupported(t *testing.T) {
	adapter := NewCoinMarketCapAdapter("test-key", zerolog.Nop())

	_, err := adapter.FetchDaily(context.Background(), "BTC", time.Now().Add(-24*time.Hour), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}
