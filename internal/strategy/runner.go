package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradegate/internal/backtest"
	"tradegate/internal/domain"
	"tradegate/internal/engine"
)

// lookbackPad covers weekends and holidays when converting a bar count into
// a calendar fetch range.
const lookbackPad = 10

// RunRequest describes a single strategy run.
type RunRequest struct {
	StrategyID string
	Symbol     string
	Parameters map[string]float64

	// Qty is the order size for live runs; zero uses the runner default.
	Qty float64

	// IsBacktest switches the run to a day-by-day simulation over
	// [Start, End] instead of placing a live order.
	IsBacktest     bool
	Start, End     time.Time
	InitialCapital float64
}

// RunResult is the outcome of a strategy run. Order is set only when a live
// run produced a buy or sell signal; Metrics only for simulated runs.
type RunResult struct {
	Signal  domain.Signal     `json:"signal"`
	Order   *domain.Order     `json:"order,omitempty"`
	Metrics *backtest.Metrics `json:"metrics,omitempty"`
}

// Runner evaluates strategies against recent market data, placing orders for
// live runs and simulating for backtest runs. Simulated runs size entries at
// 90% of available cash in whole shares, matching how the live path would
// deploy capital incrementally.
type Runner struct {
	registry   *Registry
	history    backtest.HistorySource
	engine     *engine.Engine
	defaultQty float64
	log        *slog.Logger
}

// NewRunner creates a strategy Runner. defaultQty is the order size used when
// a live run request does not specify one.
func NewRunner(reg *Registry, src backtest.HistorySource, eng *engine.Engine, defaultQty float64, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if defaultQty <= 0 {
		defaultQty = 100
	}
	return &Runner{
		registry:   reg,
		history:    src,
		engine:     eng,
		defaultQty: defaultQty,
		log:        log.With("component", "strategy-runner"),
	}
}

// Run executes the requested strategy, live or simulated.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	strat, found, err := r.registry.Build(req.StrategyID, req.Parameters)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", backtest.ErrUnknownStrategy, req.StrategyID)
	}

	if req.IsBacktest {
		return r.simulate(ctx, strat, req)
	}
	return r.runLive(ctx, strat, req)
}

// runLive evaluates the strategy on recent bars and places a market order
// when it signals buy or sell.
func (r *Runner) runLive(ctx context.Context, strat Strategy, req RunRequest) (*RunResult, error) {
	end := time.Now().UTC()
	// Two calendar days per trading day plus slack keeps the window safely
	// above MinBars across weekends and holidays.
	start := end.AddDate(0, 0, -(strat.MinBars()*2 + lookbackPad))

	bars, err := r.history.Fetch(ctx, req.Symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backtest.ErrDataUnavailable, err)
	}
	if len(bars) < strat.MinBars() {
		return nil, fmt.Errorf("%w: got %d bars, need %d", backtest.ErrInsufficientData, len(bars), strat.MinBars())
	}

	sig, err := strat.Evaluate(ctx, bars)
	if err != nil {
		return nil, err
	}
	result := &RunResult{Signal: sig}
	r.log.Info("strategy evaluated",
		"strategy", strat.Name(), "symbol", req.Symbol, "signal", sig.Type)

	if sig.Type == domain.SignalTypeHold {
		return result, nil
	}

	qty := req.Qty
	if qty <= 0 {
		qty = r.defaultQty
	}
	order, err := r.engine.SubmitOrder(ctx, &domain.Order{
		Symbol: req.Symbol,
		Side:   domain.OrderSide(sig.Type),
		Type:   domain.OrderTypeMarket,
		Qty:    qty,
	})
	if err != nil {
		return nil, fmt.Errorf("executing %s signal: %w", sig.Type, err)
	}
	result.Order = order
	return result, nil
}

// simulate replays the strategy bar by bar over [Start, End] with
// fixed-fraction whole-share sizing and returns summary metrics.
func (r *Runner) simulate(ctx context.Context, strat Strategy, req RunRequest) (*RunResult, error) {
	bars, err := r.history.Fetch(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backtest.ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", backtest.ErrDataUnavailable, req.Symbol)
	}
	if len(bars) < strat.MinBars() {
		return nil, fmt.Errorf("%w: got %d bars, need %d", backtest.ErrInsufficientData, len(bars), strat.MinBars())
	}

	signals := make([]domain.SignalType, len(bars))
	for i := range bars {
		sig, err := strat.Evaluate(ctx, bars[:i+1])
		if err != nil {
			return nil, err
		}
		signals[i] = sig.Type
	}

	capital := req.InitialCapital
	if capital <= 0 {
		capital = backtest.DefaultCapital
	}
	equity, trades, err := backtest.Simulate(bars, signals, capital, backtest.PolicyFixedFraction(0.9))
	if err != nil {
		return nil, err
	}
	m := backtest.ComputeMetrics(equity, trades, capital)

	last, err := strat.Evaluate(ctx, bars)
	if err != nil {
		return nil, err
	}
	return &RunResult{Signal: last, Metrics: &m}, nil
}
