package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for databases, asset registry and decision logs
	SignalsDir string // Directory for persisted signal files
	Port       int
	LogLevel   string
	LogPretty  bool

	// Market data
	CacheTTL        time.Duration
	CollectInterval time.Duration
	CollectWindow   time.Duration // how far back the collector backfills

	// Provider credentials (optional; keyless adapters stay usable)
	AlphaVantageAPIKey  string
	PolygonAPIKey       string
	CoinGeckoAPIKey     string
	CoinMarketCapAPIKey string

	// AI advisory service
	AIBaseURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:             getEnv("DATA_DIR", "./data"),
		SignalsDir:          resolveSignalsDir(),
		Port:                getEnvAsInt("PORT", 8002),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvAsBool("LOG_PRETTY", false),
		CacheTTL:            time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		CollectInterval:     time.Duration(getEnvAsInt("COLLECT_INTERVAL_HOURS", 6)) * time.Hour,
		CollectWindow:       time.Duration(getEnvAsInt("COLLECT_WINDOW_DAYS", 365)) * 24 * time.Hour,
		AlphaVantageAPIKey:  getEnv("ALPHA_VANTAGE_API_KEY", ""),
		PolygonAPIKey:       getEnv("POLYGON_API_KEY", ""),
		CoinGeckoAPIKey:     getEnv("COINGECKO_API_KEY", ""),
		CoinMarketCapAPIKey: getEnv("COINMARKETCAP_API_KEY", ""),
		AIBaseURL:           getEnv("FKS_AI_BASE_URL", "http://fks-ai:8007"),
	}

	return cfg, nil
}

// resolveSignalsDir picks the signal file directory. The env var wins, then the
// conventional container mount, then a subdirectory of the data dir.
func resolveSignalsDir() string {
	if dir := os.Getenv("SIGNALS_DIR"); dir != "" {
		return dir
	}
	if _, err := os.Stat("/app/signals"); err == nil {
		return "/app/signals"
	}
	return getEnv("DATA_DIR", "./data") + "/signals"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
