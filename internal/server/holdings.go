package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const holdingsFile = "portfolio.json"

// loadHoldings reads the current portfolio book from the data directory.
// The file is a flat symbol to amount map maintained by the operator.
func (s *Server) loadHoldings() (map[string]float64, error) {
	path := filepath.Join(s.deps.Cfg.DataDir, holdingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no portfolio file at %s", path)
		}
		return nil, fmt.Errorf("read holdings: %w", err)
	}

	holdings := make(map[string]float64)
	if err := json.Unmarshal(data, &holdings); err != nil {
		return nil, fmt.Errorf("parse holdings: %w", err)
	}
	return holdings, nil
}
