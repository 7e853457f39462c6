// Package strategy defines the Strategy interface for trading strategies,
// provides a Registry for managing strategy implementations, and runs
// strategies against live or simulated accounts.
package strategy

import (
	"context"
	"sort"
	"time"

	"tradegate/internal/backtest"
	"tradegate/internal/domain"
)

// Strategy evaluates a window of bars and emits at most one signal for the
// latest bar.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// MinBars returns the minimum number of bars required before the
	// strategy can emit a non-hold signal.
	MinBars() int

	// Evaluate inspects the bar window (oldest first, latest last) and
	// returns a signal for the latest bar.
	Evaluate(ctx context.Context, window []domain.Bar) (domain.Signal, error)
}

// Registry holds a named collection of strategy constructors for lookup and
// enumeration. Construction is deferred so each run gets parameterized
// instances.
type Registry struct {
	builders map[string]Builder
}

// Builder constructs a parameterized strategy instance. Unknown parameter
// keys are ignored; invalid values produce an error.
type Builder func(params map[string]float64) (Strategy, error)

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a strategy builder to the registry under name.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Build constructs a strategy by name with the given parameters. The second
// return value indicates whether the strategy name was found.
func (r *Registry) Build(name string, params map[string]float64) (Strategy, bool, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, false, nil
	}
	s, err := b(params)
	return s, true, err
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry returns a registry with the built-in strategies
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("sma_crossover", NewSMACross)
	r.Register("mean_reversion", NewMeanReversion)
	return r
}

// generatorStrategy adapts a signal generator into a Strategy.
type generatorStrategy struct {
	gen backtest.Generator
}

func (g *generatorStrategy) Name() string { return g.gen.Name() }

func (g *generatorStrategy) MinBars() int { return g.gen.MinBars() }

func (g *generatorStrategy) Evaluate(_ context.Context, window []domain.Bar) (domain.Signal, error) {
	sig := domain.Signal{
		StrategyID: g.gen.Name(),
		Type:       g.gen.Signal(window),
		CreatedAt:  time.Now().UTC(),
	}
	if len(window) > 0 {
		last := window[len(window)-1]
		sig.Symbol = last.Symbol
		sig.Price = last.Close
	}
	return sig, nil
}

// NewSMACross builds the SMA-crossover strategy. Parameters: "short_window"
// and "long_window" (defaults 20 and 50).
func NewSMACross(params map[string]float64) (Strategy, error) {
	short := backtest.DefaultShortWindow
	long := backtest.DefaultLongWindow
	if v, ok := params["short_window"]; ok {
		short = int(v)
	}
	if v, ok := params["long_window"]; ok {
		long = int(v)
	}
	gen, err := backtest.NewSMACross(short, long)
	if err != nil {
		return nil, err
	}
	return &generatorStrategy{gen: gen}, nil
}

// NewMeanReversion builds the Bollinger-band mean-reversion strategy.
// Parameters: "window" and "num_std" (defaults 20 and 2).
func NewMeanReversion(params map[string]float64) (Strategy, error) {
	window := backtest.DefaultMRWindow
	numStd := backtest.DefaultMRNumStd
	if v, ok := params["window"]; ok {
		window = int(v)
	}
	if v, ok := params["num_std"]; ok {
		numStd = v
	}
	gen, err := backtest.NewMeanReversion(window, numStd)
	if err != nil {
		return nil, err
	}
	return &generatorStrategy{gen: gen}, nil
}
