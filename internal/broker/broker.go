// Package broker defines the Broker interface and provides implementations
// for executing orders and managing accounts across different brokerages.
package broker

import (
	"context"
	"errors"

	"tradegate/internal/domain"
)

// ErrOrderNotFound is returned when an order ID is unknown to the broker.
var ErrOrderNotFound = errors.New("broker: order not found")

// PositionFilter narrows GetPositions results. Zero values match everything.
type PositionFilter struct {
	Market     domain.Market // "" matches all markets
	PLRatioMin *float64      // inclusive lower bound on PLRatio
	PLRatioMax *float64      // inclusive upper bound on PLRatio
}

// Matches reports whether pos passes the filter.
func (f PositionFilter) Matches(pos domain.Position) bool {
	if f.Market != "" && pos.Market != f.Market {
		return false
	}
	if f.PLRatioMin != nil && pos.PLRatio < *f.PLRatioMin {
		return false
	}
	if f.PLRatioMax != nil && pos.PLRatio > *f.PLRatioMax {
		return false
	}
	return true
}

// Broker abstracts brokerage operations for order execution and account management.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// SubmitOrder sends an order to the brokerage for execution and returns
	// the order as acknowledged by the brokerage.
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrder retrieves the current state of an order by its ID.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrders returns recent orders, optionally filtered by status
	// ("open", "closed", or "" for all), up to limit.
	ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error)

	// GetPositions returns current positions passing the filter.
	GetPositions(ctx context.Context, filter PositionFilter) ([]domain.Position, error)

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*domain.AccountInfo, error)

	// GetOrderBook returns current quote depth for a symbol.
	GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error)

	// GetActivities returns recent account activity records (fills,
	// dividends, transfers).
	GetActivities(ctx context.Context) ([]domain.Activity, error)
}
