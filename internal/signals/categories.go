// Package signals turns price history into graded trading signals across
// four holding horizons.
package signals

import (
	"fmt"
	"time"
)

// Category names a trading horizon
type Category string

const (
	CategoryScalp    Category = "scalp"
	CategoryIntraday Category = "intraday"
	CategorySwing    Category = "swing"
	CategoryLongTerm Category = "long_term"
)

// Band is an inclusive percentage range
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Midpoint returns the center of the band
func (b Band) Midpoint() float64 {
	return (b.Min + b.Max) / 2
}

// CategoryConfig parameterizes signal generation for one horizon.
// TakeProfit and StopLoss are percentage bands of the entry price.
type CategoryConfig struct {
	Name       Category      `json:"name"`
	TakeProfit Band          `json:"take_profit"`
	StopLoss   Band          `json:"stop_loss"`
	MinHold    time.Duration `json:"min_hold"`
	MaxHold    time.Duration `json:"max_hold"`
}

// Categories returns every horizon in ascending hold time.
func Categories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:       CategoryScalp,
			TakeProfit: Band{Min: 0.1, Max: 0.5},
			StopLoss:   Band{Min: 0.05, Max: 0.2},
			MinHold:    30 * time.Second,
			MaxHold:    15 * time.Minute,
		},
		{
			Name:       CategoryIntraday,
			TakeProfit: Band{Min: 0.5, Max: 2.0},
			StopLoss:   Band{Min: 0.2, Max: 1.0},
			MinHold:    15 * time.Minute,
			MaxHold:    24 * time.Hour,
		},
		{
			Name:       CategorySwing,
			TakeProfit: Band{Min: 2, Max: 10},
			StopLoss:   Band{Min: 1, Max: 5},
			MinHold:    24 * time.Hour,
			MaxHold:    4 * 7 * 24 * time.Hour,
		},
		{
			Name:       CategoryLongTerm,
			TakeProfit: Band{Min: 10, Max: 50},
			StopLoss:   Band{Min: 5, Max: 15},
			MinHold:    4 * 7 * 24 * time.Hour,
			MaxHold:    365 * 24 * time.Hour,
		},
	}
}

// CategoryByName looks up a horizon config by its name.
func CategoryByName(name string) (CategoryConfig, error) {
	for _, c := range Categories() {
		if string(c.Name) == name {
			return c, nil
		}
	}
	return CategoryConfig{}, fmt.Errorf("unknown signal category %q", name)
}

// CategoryNames lists the valid category names in order.
func CategoryNames() []string {
	cats := Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c.Name)
	}
	return names
}
