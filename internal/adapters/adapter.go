// Package adapters implements market data providers behind a common interface.
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/fks-analytics/internal/domain"
)

var (
	// ErrUnavailable signals a provider failure the router should treat as "try next"
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNoData signals the provider responded but had nothing for the request
	ErrNoData = errors.New("no data for request")
	// ErrUnsupported signals an operation the provider does not offer
	ErrUnsupported = errors.New("operation not supported by provider")
)

// Adapter fetches daily bars and quotes from one market data provider.
// Implementations rate-limit themselves and never panic on provider errors.
type Adapter interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Registry holds adapters by name preserving registration order.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Re-registering a name replaces it in place.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.Name()]; !exists {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns the adapter by name
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns registered adapter names in registration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// utcMidnight truncates a timestamp to its UTC date.
func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
