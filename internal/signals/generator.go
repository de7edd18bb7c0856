package signals

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/fks-analytics/internal/domain"
)

// Generator runs the engine over a symbol universe and applies the
// behavioral gate before ranking the results.
type Generator struct {
	engine *Engine
	log    zerolog.Logger
}

// NewGenerator creates a signal generator
func NewGenerator(engine *Engine, log zerolog.Logger) *Generator {
	return &Generator{
		engine: engine,
		log:    log.With().Str("component", "signal-generator").Logger(),
	}
}

// Generate evaluates every series under the given horizon. Symbols
// carrying a high severity bias flag are skipped entirely; survivors are
// sorted by confidence, best first.
func (g *Generator) Generate(series map[string]domain.Series, cfg CategoryConfig, biasReport domain.BiasReport) []domain.TradingSignal {
	blocked := biasReport.HighSeveritySymbols()

	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var out []domain.TradingSignal
	for _, symbol := range symbols {
		if blocked[symbol] {
			g.log.Info().Str("symbol", symbol).Msg("Skipping symbol with high severity bias flag")
			continue
		}
		if sig := g.engine.Evaluate(series[symbol], cfg); sig != nil {
			out = append(out, *sig)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
