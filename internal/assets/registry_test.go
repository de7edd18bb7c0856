package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fks-analytics/internal/domain"
)

func TestRegistry_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")

	reg, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "registry file should be created")

	all := reg.All()
	assert.Len(t, all, len(Defaults()))
	assert.Equal(t, "BTC", all[0].Symbol, "priority 1 assets come first")

	btc, ok := reg.Get("BTC")
	require.True(t, ok)
	assert.Equal(t, domain.ClassCrypto, btc.Class)
	assert.Equal(t, []string{"binance", "coingecko", "coinmarketcap"}, btc.Adapters)
}

func TestRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")

	reg, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, reg.SetEnabled("MATIC", false))

	reloaded, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	matic, ok := reloaded.Get("MATIC")
	require.True(t, ok)
	assert.False(t, matic.Enabled)

	enabled := reloaded.Enabled()
	for _, a := range enabled {
		assert.NotEqual(t, "MATIC", a.Symbol)
	}
}

func TestRegistry_SetEnabledUnknown(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)

	err = reg.SetEnabled("NOPE", true)
	assert.Error(t, err)
}

func TestRegistry_Upsert(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, reg.Upsert(domain.Asset{
		Symbol:   "AAPL",
		Name:     "Apple",
		Class:    domain.ClassStock,
		Priority: 2,
		Adapters: []string{"yahoofinance"},
		Enabled:  true,
	}))

	aapl, ok := reg.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, "Apple", aapl.Name)
	assert.Equal(t, []string{"yahoofinance"}, reg.AdaptersFor("AAPL"))
}

func TestRegistry_SetLastCollectedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")

	reg, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, reg.SetLastCollected("BTC", stamp))

	reloaded, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	btc, ok := reloaded.Get("BTC")
	require.True(t, ok)
	require.NotNil(t, btc.LastCollected)
	assert.True(t, stamp.Equal(*btc.LastCollected))

	eth, ok := reloaded.Get("ETH")
	require.True(t, ok)
	assert.Nil(t, eth.LastCollected, "untouched assets carry no watermark")
}

func TestRegistry_SetLastCollectedUnknown(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)

	assert.Error(t, reg.SetLastCollected("NOPE", time.Now()))
}

func TestAdaptersFor_Fallbacks(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "assets.json"), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"binance", "coingecko", "coinmarketcap"}, reg.AdaptersFor("DOGE"))
	assert.Equal(t, []string{"yahoofinance", "alphavantage", "polygon"}, reg.AdaptersFor("TSLA"))
}

func TestIsCryptoSymbol(t *testing.T) {
	assert.True(t, IsCryptoSymbol("BTC"))
	assert.True(t, IsCryptoSymbol("DOGE"))
	assert.False(t, IsCryptoSymbol("SPY"))
}
