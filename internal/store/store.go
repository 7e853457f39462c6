// Package store defines storage interfaces for persisting and retrieving
// market data and backtest run summaries, with Parquet, ClickHouse, and
// SQLite implementations.
package store

import (
	"context"
	"time"

	"tradegate/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage under the given market.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// RunRecord is a persisted summary of a completed backtest run.
type RunRecord struct {
	ID             string    `json:"id"`
	StrategyID     string    `json:"strategy_id"`
	Symbol         string    `json:"symbol"`
	StartDate      string    `json:"start_date"` // YYYY-MM-DD
	EndDate        string    `json:"end_date"`   // YYYY-MM-DD
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	NetPerformance float64   `json:"net_performance"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	NumTrades      int       `json:"num_trades"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStore persists and retrieves backtest run summaries.
type RunStore interface {
	// SaveRun inserts a new run summary into storage.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// GetRun retrieves a single run summary by its ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent run summaries, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
