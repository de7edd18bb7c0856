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

func TestBinanceAdapter_FetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[1704153600000, "42000.5", "43000.0", "41500.0", "42500.0", "1234.5", 1704239999999],
			[1704240000000, "42500.0", "44000.0", "42000.0", "43800.0", "2345.6", 1704326399999]
		]`))
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(zerolog.Nop())
	adapter.BaseURL = server.URL

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	bars, err := adapter.FetchDaily(context.Background(), "BTC", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 42000.5, bars[0].Open)
	assert.Equal(t, 43000.0, bars[0].High)
	assert.Equal(t, 41500.0, bars[0].Low)
	assert.Equal(t, 42500.0, bars[0].Close)
	assert.Equal(t, 1234.5, bars[0].Volume)
	assert.Equal(t, 43800.0, bars[1].Close)
}

func TestBinanceAdapter_FetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"2250.75"}`))
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(zerolog.Nop())
	adapter.BaseURL = server.URL

	quote, err := adapter.FetchQuote(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, "ETH", quote.Symbol)
	assert.Equal(t, 2250.75, quote.Price)
	assert.Equal(t, "USD", quote.Currency)
}

func TestBinanceAdapter_ServerErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(zerolog.Nop())
	adapter.BaseURL = server.URL

	_, err := adapter.FetchQuote(context.Background(), "BTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = adapter.FetchDaily(context.Background(), "BTC", time.Now().Add(-24*time.Hour), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBinanceAdapter_UnreachableHost(t *testing.T) {
	adapter := NewBinanceAdapter(zerolog.Nop())
	adapter.BaseURL = "http://127.0.0.1:1"

	_, err := adapter.FetchQuote(context.Background(), "BTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRegistry_OrderAndReplace(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewBinanceAdapter(zerolog.Nop()))
	reg.Register(NewCoinGeckoAdapter("", zerolog.Nop()))
	reg.Register(NewBinanceAdapter(zerolog.Nop()))

	assert.Equal(t, []string{"binance", "coingecko"}, reg.Names())

	a, ok := reg.Get("binance")
	require.True(t, ok)
	assert.Equal(t, "binance", a.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}
