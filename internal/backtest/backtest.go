package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/domain"
	"tradegate/internal/store"
)

// Default parameter values per strategy, applied when the request omits them.
const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
	DefaultMRWindow    = 20
	DefaultMRNumStd    = 2.0
	DefaultCapital     = 10000.0
)

// HistorySource fetches the ordered daily bar series for a symbol and date
// range. Implementations live in internal/history.
type HistorySource interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// Request describes one backtest invocation.
type Request struct {
	StrategyID     string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	Parameters     map[string]float64
}

// GraphPoint is one bar of the result series prepared for visualisation.
// Nullable fields are pointers so absent values serialise as JSON null.
type GraphPoint struct {
	Date             string   `json:"date"`
	Price            float64  `json:"price"`
	ShortSMA         *float64 `json:"short_sma"`
	LongSMA          *float64 `json:"long_sma"`
	PortfolioValue   float64  `json:"portfolio_value"`
	PortfolioPerfPct float64  `json:"portfolio_performance"`
	BuyPrice         *float64 `json:"buyPrice"`
	SellPrice        *float64 `json:"sellPrice"`
}

// Result is the immutable outcome of a backtest run.
type Result struct {
	Metrics Metrics      `json:"metrics"`
	Graph   []GraphPoint `json:"graph_data"`
}

// Runner orchestrates a backtest: it resolves the strategy, fetches history,
// generates signals, simulates trades, and computes metrics. Each Run owns
// all of its working state, so concurrent runs need no coordination.
type Runner struct {
	history HistorySource
	runs    store.RunStore // optional; nil disables run persistence
	log     *slog.Logger
}

// NewRunner creates a Runner reading price history from src. If runs is
// non-nil, a summary of every successful run is persisted to it.
func NewRunner(src HistorySource, runs store.RunStore, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		history: src,
		runs:    runs,
		log:     log.With("component", "backtest"),
	}
}

// Run executes a full backtest for the request and returns its result.
// Failures are reported through the package sentinel errors and are never
// coerced into a generic catch-all.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	gen, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	if req.InitialCapital == 0 {
		req.InitialCapital = DefaultCapital
	}

	bars, err := r.history.Fetch(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s [%s, %s]: %v",
			ErrDataUnavailable, req.Symbol,
			req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s in [%s, %s]",
			ErrDataUnavailable, req.Symbol,
			req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}

	if len(bars) < gen.MinBars() {
		return nil, fmt.Errorf("%w: %d bars fetched, %d required",
			ErrInsufficientData, len(bars), gen.MinBars())
	}

	signals := GenerateSignals(gen, bars)

	equity, trades, err := Simulate(bars, signals, req.InitialCapital, PolicyAllIn)
	if err != nil {
		return nil, err
	}

	metrics := ComputeMetrics(equity, trades, req.InitialCapital)
	graph := buildGraph(bars, trades, equity, req)

	res := &Result{Metrics: metrics, Graph: graph}

	r.saveRun(ctx, req, metrics)

	r.log.Info("backtest complete",
		"strategy", req.StrategyID,
		"symbol", req.Symbol,
		"bars", len(bars),
		"trades", metrics.NumTrades,
		"net", metrics.NetPerformance,
	)
	return res, nil
}

// resolve maps the strategy identifier to a signal generator. mean_reversion
// is recognised but its backtest path is intentionally unfinished, which is
// surfaced as a first-class outcome rather than a wrong result.
func (r *Runner) resolve(req Request) (Generator, error) {
	param := func(key string, def float64) float64 {
		if v, ok := req.Parameters[key]; ok {
			return v
		}
		return def
	}

	switch req.StrategyID {
	case "sma_crossover":
		short := int(param("short_window", DefaultShortWindow))
		long := int(param("long_window", DefaultLongWindow))
		return NewSMACross(short, long)
	case "mean_reversion":
		// Validate the parameters so configuration mistakes still surface as
		// such before the unimplemented outcome.
		if _, err := NewMeanReversion(int(param("window", DefaultMRWindow)), param("num_std", DefaultMRNumStd)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: mean_reversion", ErrStrategyUnimplemented)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, req.StrategyID)
	}
}

// GenerateSignals runs the generator over a growing window ending at every
// bar and returns one signal per bar. Bars inside the warmup period yield
// hold.
func GenerateSignals(gen Generator, bars []domain.Bar) []domain.SignalType {
	signals := make([]domain.SignalType, len(bars))
	for i := range bars {
		signals[i] = gen.Signal(bars[:i+1])
	}
	return signals
}

// buildGraph assembles the per-bar visualisation series: price, the two SMA
// overlays (null during warmup), portfolio value and performance, and
// buy/sell markers on the bars where a trade executed (null elsewhere).
func buildGraph(bars []domain.Bar, trades []TradeRecord, equity []EquityPoint, req Request) []GraphPoint {
	param := func(key string, def float64) float64 {
		if v, ok := req.Parameters[key]; ok {
			return v
		}
		return def
	}
	short := int(param("short_window", DefaultShortWindow))
	long := int(param("long_window", DefaultLongWindow))

	closes := closesOf(bars)
	shortSMA := smaSeries(closes, short)
	longSMA := smaSeries(closes, long)

	initial := equity[0].Equity

	graph := make([]GraphPoint, len(bars))
	j := 0
	for i := range bars {
		gp := GraphPoint{
			Date:           bars[i].Timestamp.Format("2006-01-02"),
			Price:          bars[i].Close,
			ShortSMA:       finitePtr(shortSMA[i]),
			LongSMA:        finitePtr(longSMA[i]),
			PortfolioValue: equity[i].Equity,
		}
		if initial > 0 {
			gp.PortfolioPerfPct = (equity[i].Equity/initial - 1) * 100
		}
		if j < len(trades) && trades[j].Timestamp.Equal(bars[i].Timestamp) {
			p := trades[j].Price
			if trades[j].Action == domain.OrderSideBuy {
				gp.BuyPrice = &p
			} else {
				gp.SellPrice = &p
			}
			j++
		}
		graph[i] = gp
	}
	return graph
}

// finitePtr returns a pointer to x, or nil when x is not finite.
func finitePtr(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// saveRun persists a run summary. Persistence failures are logged, never
// surfaced: the backtest result is already computed and valid.
func (r *Runner) saveRun(ctx context.Context, req Request, m Metrics) {
	if r.runs == nil {
		return
	}
	rec := store.RunRecord{
		ID:             uuid.NewString(),
		StrategyID:     req.StrategyID,
		Symbol:         req.Symbol,
		StartDate:      req.Start.Format("2006-01-02"),
		EndDate:        req.End.Format("2006-01-02"),
		InitialCapital: m.InitialValue,
		FinalValue:     m.FinalValue,
		NetPerformance: m.NetPerformance,
		SharpeRatio:    m.SharpeRatio,
		MaxDrawdown:    m.MaxDrawdown,
		NumTrades:      m.NumTrades,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.runs.SaveRun(ctx, &rec); err != nil {
		r.log.Warn("saving run summary", "error", err)
	}
}
