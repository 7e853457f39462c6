package backtest

import "errors"

// Failure taxonomy for backtest runs. Each sentinel is wrapped with context
// via fmt.Errorf("...: %w", ...) and matched with errors.Is at the API
// boundary, where each maps to a distinct HTTP status.
var (
	// ErrInvalidConfig indicates an invalid strategy parameter combination,
	// e.g. short_window >= long_window.
	ErrInvalidConfig = errors.New("invalid strategy configuration")

	// ErrUnknownStrategy indicates an unrecognised strategy identifier.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrDataUnavailable indicates the upstream price-history fetch failed or
	// returned no bars.
	ErrDataUnavailable = errors.New("price history unavailable")

	// ErrInsufficientData indicates the fetched series is shorter than the
	// lookback required by the requested windows.
	ErrInsufficientData = errors.New("insufficient price history for requested windows")

	// ErrInvalidPrice indicates a non-positive price was encountered during
	// simulation.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrStrategyUnimplemented indicates a recognised strategy whose backtest
	// is intentionally unfinished.
	ErrStrategyUnimplemented = errors.New("strategy backtest not implemented")
)
