// Package backtest implements the backtest engine: pure signal generation
// over historical bars, capital simulation, performance metrics, and the
// orchestrating Runner that ties them together.
package backtest

import (
	"fmt"
	"math"

	"tradegate/internal/domain"
)

// Generator produces exactly one signal for the most recent bar of a window.
// Implementations are pure: the same window and parameters always yield the
// same signal.
type Generator interface {
	// Name returns the strategy identifier this generator implements.
	Name() string

	// MinBars returns the minimum window length required before the generator
	// can emit a non-hold signal.
	MinBars() int

	// Signal returns the signal for the last bar of the window (most-recent
	// last). Windows shorter than MinBars yield SignalTypeHold.
	Signal(window []domain.Bar) domain.SignalType
}

// Compile-time interface checks.
var _ Generator = (*SMACross)(nil)
var _ Generator = (*MeanReversion)(nil)

// ---------------------------------------------------------------------------
// SMA crossover
// ---------------------------------------------------------------------------

// SMACross emits a buy signal when the short-period SMA crosses above the
// long-period SMA, and a sell signal on the opposite crossover.
type SMACross struct {
	short int
	long  int
}

// NewSMACross creates an SMACross generator. The short window must be
// strictly less than the long window and both must be positive.
func NewSMACross(short, long int) (*SMACross, error) {
	if short < 1 || long < 1 {
		return nil, fmt.Errorf("%w: windows must be positive (short=%d, long=%d)", ErrInvalidConfig, short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("%w: short_window (%d) must be less than long_window (%d)", ErrInvalidConfig, short, long)
	}
	return &SMACross{short: short, long: long}, nil
}

// Name returns "sma_crossover".
func (s *SMACross) Name() string { return "sma_crossover" }

// MinBars returns long_window + 1: one full long window plus the previous bar
// needed to detect a crossover.
func (s *SMACross) MinBars() int { return s.long + 1 }

// Signal returns buy on a rising crossover, sell on a falling crossover, and
// hold otherwise or when the window is too short.
func (s *SMACross) Signal(window []domain.Bar) domain.SignalType {
	if len(window) < s.MinBars() {
		return domain.SignalTypeHold
	}

	closes := closesOf(window)
	n := len(closes)

	curShort := mean(closes[n-s.short:])
	curLong := mean(closes[n-s.long:])
	prevShort := mean(closes[n-1-s.short : n-1])
	prevLong := mean(closes[n-1-s.long : n-1])

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return domain.SignalTypeBuy
	case prevShort >= prevLong && curShort < curLong:
		return domain.SignalTypeSell
	default:
		return domain.SignalTypeHold
	}
}

// ---------------------------------------------------------------------------
// Bollinger-band mean reversion
// ---------------------------------------------------------------------------

// MeanReversion emits a buy signal when the close crosses down through the
// lower Bollinger band (oversold reversal) and a sell signal when it crosses
// up through the upper band.
type MeanReversion struct {
	window int
	numStd float64
}

// NewMeanReversion creates a MeanReversion generator. The window must be at
// least 2 (a rolling standard deviation needs two points) and numStd must be
// non-negative.
func NewMeanReversion(window int, numStd float64) (*MeanReversion, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: window must be at least 2 (got %d)", ErrInvalidConfig, window)
	}
	if numStd < 0 {
		return nil, fmt.Errorf("%w: num_std must be non-negative (got %v)", ErrInvalidConfig, numStd)
	}
	return &MeanReversion{window: window, numStd: numStd}, nil
}

// Name returns "mean_reversion".
func (m *MeanReversion) Name() string { return "mean_reversion" }

// MinBars returns window + 1.
func (m *MeanReversion) MinBars() int { return m.window + 1 }

// Signal returns buy on a downward breach of the lower band, sell on an
// upward breach of the upper band, and hold otherwise. When the rolling
// standard deviation is zero (constant prices) the bands are undefined and
// the signal is hold.
func (m *MeanReversion) Signal(window []domain.Bar) domain.SignalType {
	if len(window) < m.MinBars() {
		return domain.SignalTypeHold
	}

	closes := closesOf(window)
	n := len(closes)

	curMean, curStd := meanStd(closes[n-m.window:])
	prevMean, prevStd := meanStd(closes[n-1-m.window : n-1])
	if curStd == 0 || prevStd == 0 {
		return domain.SignalTypeHold
	}

	cur := closes[n-1]
	prev := closes[n-2]

	curLower := curMean - m.numStd*curStd
	curUpper := curMean + m.numStd*curStd
	prevLower := prevMean - m.numStd*prevStd
	prevUpper := prevMean + m.numStd*prevStd

	switch {
	case prev >= prevLower && cur < curLower:
		return domain.SignalTypeBuy
	case prev <= prevUpper && cur > curUpper:
		return domain.SignalTypeSell
	default:
		return domain.SignalTypeHold
	}
}

// ---------------------------------------------------------------------------
// Rolling helpers
// ---------------------------------------------------------------------------

func closesOf(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// meanStd returns the mean and sample standard deviation (ddof=1) of xs.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return mean(xs), 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return m, math.Sqrt(ss / float64(len(xs)-1))
}

// smaSeries returns the rolling simple moving average of xs over period p,
// aligned to the input length with NaNs for the warmup prefix.
func smaSeries(xs []float64, p int) []float64 {
	out := make([]float64, len(xs))
	var sum float64
	for i := range xs {
		sum += xs[i]
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= xs[i-p]
		}
		out[i] = sum / float64(p)
	}
	return out
}
