package backtest

import "math"

// tradingDaysPerYear is the annualisation base for daily bars.
const tradingDaysPerYear = 252

// Metrics summarises the performance of a simulated portfolio trajectory.
// All values are finite: degenerate inputs (empty series, zero volatility,
// zero trades) produce 0 rather than NaN or Inf.
type Metrics struct {
	NetPerformance    float64 `json:"net_performance"`
	AnnualizedReturn  float64 `json:"annualized_return"`
	Volatility        float64 `json:"volatility"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	WinRate           float64 `json:"win_rate"`
	AvgProfitPerTrade float64 `json:"avg_profit_per_trade"`
	NumTrades         int     `json:"num_trades"`
	FinalValue        float64 `json:"final_value"`
	InitialValue      float64 `json:"initial_value"`
}

// ComputeMetrics derives summary statistics from an equity curve and trade
// log. The computation is deterministic and treats the inputs as immutable.
func ComputeMetrics(equity []EquityPoint, trades []TradeRecord, initialCapital float64) Metrics {
	m := Metrics{
		InitialValue: initialCapital,
		FinalValue:   initialCapital,
		NumTrades:    len(trades),
	}
	if len(equity) == 0 {
		return m
	}

	final := equity[len(equity)-1].Equity
	m.FinalValue = final
	m.NetPerformance = (final - initialCapital) / initialCapital

	// Annualised return over the number of trading days observed.
	days := float64(len(equity))
	m.AnnualizedReturn = math.Pow(1+m.NetPerformance, tradingDaysPerYear/days) - 1

	// Annualised volatility of per-bar percentage returns.
	if len(equity) > 1 {
		returns := make([]float64, 0, len(equity)-1)
		for i := 1; i < len(equity); i++ {
			prev := equity[i-1].Equity
			if prev == 0 {
				returns = append(returns, 0)
				continue
			}
			returns = append(returns, equity[i].Equity/prev-1)
		}
		_, std := meanStd(returns)
		m.Volatility = std * math.Sqrt(tradingDaysPerYear)
	}

	if m.Volatility > 0 {
		m.SharpeRatio = m.AnnualizedReturn / m.Volatility
	}

	// Max drawdown: lowest ratio of equity to its running peak, minus one.
	// Always <= 0; exactly 0 for a monotonically non-decreasing curve.
	peak := equity[0].Equity
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := p.Equity/peak - 1; dd < m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	// Win rate over trade-to-trade equity changes, counted only on bars where
	// a trade executed. The first trade has no predecessor and never counts
	// as a win, but stays in the denominator.
	if len(trades) > 0 {
		tradeEquity := make([]float64, 0, len(trades))
		j := 0
		for _, p := range equity {
			if j < len(trades) && trades[j].Timestamp.Equal(p.Timestamp) {
				tradeEquity = append(tradeEquity, p.Equity)
				j++
			}
		}
		wins := 0
		for i := 1; i < len(tradeEquity); i++ {
			if tradeEquity[i] > tradeEquity[i-1] {
				wins++
			}
		}
		m.WinRate = float64(wins) / float64(len(trades))
		m.AvgProfitPerTrade = m.NetPerformance / float64(len(trades))
	}

	return sanitize(m)
}

// sanitize replaces any non-finite metric with 0 so callers never see NaN or
// Inf across the component boundary.
func sanitize(m Metrics) Metrics {
	m.NetPerformance = finite(m.NetPerformance)
	m.AnnualizedReturn = finite(m.AnnualizedReturn)
	m.Volatility = finite(m.Volatility)
	m.SharpeRatio = finite(m.SharpeRatio)
	m.MaxDrawdown = finite(m.MaxDrawdown)
	m.WinRate = finite(m.WinRate)
	m.AvgProfitPerTrade = finite(m.AvgProfitPerTrade)
	m.FinalValue = finite(m.FinalValue)
	m.InitialValue = finite(m.InitialValue)
	return m
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
