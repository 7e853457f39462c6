package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradegate/internal/backtest"
	"tradegate/internal/broker"
	"tradegate/internal/domain"
	"tradegate/internal/engine"
)

func TestRegistryBuildAndList(t *testing.T) {
	r := NewDefaultRegistry()

	names := r.List()
	if len(names) != 2 || names[0] != "mean_reversion" || names[1] != "sma_crossover" {
		t.Errorf("List() = %v, want [mean_reversion sma_crossover]", names)
	}

	s, found, err := r.Build("sma_crossover", map[string]float64{"short_window": 5, "long_window": 10})
	if err != nil || !found {
		t.Fatalf("Build(sma_crossover) = %v, found=%v", err, found)
	}
	if s.MinBars() != 11 {
		t.Errorf("MinBars() = %d, want 11 (long_window + 1)", s.MinBars())
	}

	if _, found, _ := r.Build("nonexistent", nil); found {
		t.Error("Build(nonexistent) found = true, want false")
	}
}

func TestRegistryBuildInvalidParams(t *testing.T) {
	r := NewDefaultRegistry()

	_, found, err := r.Build("sma_crossover", map[string]float64{"short_window": 50, "long_window": 20})
	if !found {
		t.Fatal("sma_crossover not found")
	}
	if !errors.Is(err, backtest.ErrInvalidConfig) {
		t.Errorf("Build error = %v, want ErrInvalidConfig", err)
	}
}

// stubHistory serves a fixed bar series for any range.
type stubHistory struct {
	bars []domain.Bar
	err  error
}

func (s *stubHistory) Fetch(_ context.Context, _ string, _, _ time.Time) ([]domain.Bar, error) {
	return s.bars, s.err
}

func barSeries(symbol string, closes ...float64) []domain.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Symbol: symbol, Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func newTestRunner(t *testing.T, bars []domain.Bar) *Runner {
	t.Helper()
	b := broker.NewSimulatorBroker(1_000_000, func(context.Context, string) (float64, error) {
		if len(bars) == 0 {
			return 0, errors.New("no bars")
		}
		return bars[len(bars)-1].Close, nil
	})
	eng := engine.NewEngine(b, nil, nil)
	return NewRunner(NewDefaultRegistry(), &stubHistory{bars: bars}, eng, 100, nil)
}

func smaParams() map[string]float64 {
	return map[string]float64{"short_window": 2, "long_window": 3}
}

func TestRunnerLiveBuySignalPlacesOrder(t *testing.T) {
	// Short SMA crosses above long SMA on the final bar.
	bars := barSeries("AAPL", 10, 10, 10, 12)
	r := newTestRunner(t, bars)

	res, err := r.Run(context.Background(), RunRequest{
		StrategyID: "sma_crossover",
		Symbol:     "AAPL",
		Parameters: smaParams(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Signal.Type != domain.SignalTypeBuy {
		t.Fatalf("signal = %q, want buy", res.Signal.Type)
	}
	if res.Order == nil {
		t.Fatal("expected an order for a buy signal")
	}
	if res.Order.Side != domain.OrderSideBuy || res.Order.Qty != 100 {
		t.Errorf("order = %s qty %v, want buy qty 100", res.Order.Side, res.Order.Qty)
	}
}

func TestRunnerLiveHoldPlacesNoOrder(t *testing.T) {
	bars := barSeries("AAPL", 10, 10, 10, 10, 10)
	r := newTestRunner(t, bars)

	res, err := r.Run(context.Background(), RunRequest{
		StrategyID: "sma_crossover",
		Symbol:     "AAPL",
		Parameters: smaParams(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Signal.Type != domain.SignalTypeHold {
		t.Errorf("signal = %q, want hold", res.Signal.Type)
	}
	if res.Order != nil {
		t.Errorf("order = %+v, want nil for hold", res.Order)
	}
}

func TestRunnerUnknownStrategy(t *testing.T) {
	r := newTestRunner(t, barSeries("AAPL", 10, 11, 12, 13))

	_, err := r.Run(context.Background(), RunRequest{StrategyID: "momentum", Symbol: "AAPL"})
	if !errors.Is(err, backtest.ErrUnknownStrategy) {
		t.Errorf("Run error = %v, want ErrUnknownStrategy", err)
	}
}

func TestRunnerInsufficientBars(t *testing.T) {
	r := newTestRunner(t, barSeries("AAPL", 10, 11))

	_, err := r.Run(context.Background(), RunRequest{
		StrategyID: "sma_crossover",
		Symbol:     "AAPL",
		Parameters: smaParams(),
	})
	if !errors.Is(err, backtest.ErrInsufficientData) {
		t.Errorf("Run error = %v, want ErrInsufficientData", err)
	}
}

func TestRunnerSimulateFixedFraction(t *testing.T) {
	// One crossover buy at 12, one sell at 10. With 90% sizing:
	// buy 750 shares (9000 of 10000), sell at 10 → 1000 + 7500 = 8500.
	bars := barSeries("AAPL", 10, 10, 10, 12, 14, 16, 10, 8, 6)
	r := newTestRunner(t, bars)

	res, err := r.Run(context.Background(), RunRequest{
		StrategyID:     "sma_crossover",
		Symbol:         "AAPL",
		Parameters:     smaParams(),
		IsBacktest:     true,
		Start:          bars[0].Timestamp,
		End:            bars[len(bars)-1].Timestamp,
		InitialCapital: 10000,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Metrics == nil {
		t.Fatal("expected metrics for a simulated run")
	}
	if res.Metrics.NumTrades != 2 {
		t.Errorf("NumTrades = %d, want 2", res.Metrics.NumTrades)
	}
	if res.Metrics.FinalValue != 8500 {
		t.Errorf("FinalValue = %v, want 8500", res.Metrics.FinalValue)
	}
	if res.Order != nil {
		t.Errorf("order = %+v, want nil for simulated run", res.Order)
	}
}

func TestRunnerSimulateMeanReversion(t *testing.T) {
	// Mean reversion runs in simulation mode even though the vectorized
	// backtest endpoint does not support it.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	bars := barSeries("AAPL", closes...)
	r := newTestRunner(t, bars)

	res, err := r.Run(context.Background(), RunRequest{
		StrategyID:     "mean_reversion",
		Symbol:         "AAPL",
		Parameters:     map[string]float64{"window": 5, "num_std": 2},
		IsBacktest:     true,
		Start:          bars[0].Timestamp,
		End:            bars[len(bars)-1].Timestamp,
		InitialCapital: 10000,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Metrics == nil {
		t.Fatal("expected metrics for a simulated run")
	}
}
