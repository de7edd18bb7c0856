// Package ai talks to the external analysis service. Every call degrades
// to a neutral fallback so signal generation never blocks on it.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

const (
	baseTimeout    = 30 * time.Second
	analyzeTimeout = 60 * time.Second
)

// Analysis is the service's verdict on a symbol or signal.
type Analysis struct {
	Confidence    float64 `json:"confidence"`
	FinalDecision string  `json:"final_decision"`
	Summary       string  `json:"summary"`
	BullConsensus float64 `json:"bull_consensus"`
	BearConsensus float64 `json:"bear_consensus"`
}

// Fallback is the neutral analysis returned when the service is
// unreachable or answers badly.
func Fallback(reason string) Analysis {
	return Analysis{
		Confidence:    0.5,
		FinalDecision: "HOLD",
		Summary:       fmt.Sprintf("analysis unavailable: %s", reason),
		BullConsensus: 0.5,
		BearConsensus: 0.5,
	}
}

// Client is an HTTP client for the analysis service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client against the given base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	// Timeouts are applied per call via context; analyze gets a longer one
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		log:     log.With().Str("component", "ai-client").Logger(),
	}
}

type analyzeRequest struct {
	Symbol     string             `json:"symbol"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// AnalyzeSymbol asks for a long-form read on one symbol. Failures return
// the neutral fallback, never an error.
func (c *Client) AnalyzeSymbol(ctx context.Context, symbol string, indicators map[string]float64) Analysis {
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()
	return c.post(ctx, "/ai/analyze", analyzeRequest{Symbol: symbol, Indicators: indicators})
}

// DebateSignal submits a signal for a bull/bear debate.
func (c *Client) DebateSignal(ctx context.Context, sig domain.TradingSignal) Analysis {
	ctx, cancel := context.WithTimeout(ctx, baseTimeout)
	defer cancel()
	return c.post(ctx, "/ai/debate", sig)
}

// HealthCheck reports whether the service answers on /health.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, baseTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, payload any) Analysis {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.fallback(path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return c.fallback(path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fallback(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.fallback(path, fmt.Errorf("status %d", resp.StatusCode))
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return c.fallback(path, err)
	}
	return analysis
}

func (c *Client) fallback(path string, err error) Analysis {
	c.log.Warn().Err(err).Str("path", path).Msg("Analysis service unavailable, using fallback")
	return Fallback(err.Error())
}
