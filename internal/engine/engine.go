// Package engine coordinates order management, position tracking, and risk
// checking across the trading system.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"tradegate/internal/broker"
	"tradegate/internal/domain"
)

// Engine orchestrates the trading lifecycle by delegating to a broker for
// execution and a risk manager for pre-trade checks.
type Engine struct {
	broker broker.Broker
	risk   *RiskManager
	log    *slog.Logger
}

// NewEngine creates a new Engine wired with the given dependencies.
func NewEngine(b broker.Broker, risk *RiskManager, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		broker: b,
		risk:   risk,
		log:    log.With("component", "engine"),
	}
}

// SubmitOrder validates the order against risk rules and then forwards it to
// the broker for execution.
func (e *Engine) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.Qty <= 0 {
		return nil, fmt.Errorf("order qty must be positive, got %v", order.Qty)
	}
	if order.Type == domain.OrderTypeLimit && (order.LimitPrice == nil || *order.LimitPrice <= 0) {
		return nil, fmt.Errorf("limit order requires a positive limit price")
	}

	if e.risk != nil {
		account, err := e.broker.GetAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching account for risk check: %w", err)
		}
		refPrice, err := e.referencePrice(ctx, order)
		if err != nil {
			return nil, err
		}
		if err := e.risk.CheckOrder(ctx, order, account, refPrice); err != nil {
			e.log.Warn("order rejected by risk check",
				"symbol", order.Symbol, "side", order.Side, "qty", order.Qty, "error", err)
			return nil, err
		}
	}

	placed, err := e.broker.SubmitOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	e.log.Info("order submitted",
		"id", placed.ID, "symbol", placed.Symbol,
		"side", placed.Side, "qty", placed.Qty, "status", placed.Status)
	return placed, nil
}

// referencePrice estimates the execution price for a risk check: the limit
// price for limit orders, the quote midpoint for market orders.
func (e *Engine) referencePrice(ctx context.Context, order *domain.Order) (float64, error) {
	if order.Type == domain.OrderTypeLimit && order.LimitPrice != nil {
		return *order.LimitPrice, nil
	}
	book, err := e.broker.GetOrderBook(ctx, order.Symbol)
	if err != nil {
		return 0, fmt.Errorf("fetching quote for risk check: %w", err)
	}
	var bid, ask float64
	if len(book.Bids) > 0 {
		bid = book.Bids[0].Price
	}
	if len(book.Asks) > 0 {
		ask = book.Asks[0].Price
	}
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2, nil
	case ask > 0:
		return ask, nil
	case bid > 0:
		return bid, nil
	default:
		return 0, fmt.Errorf("no quote available for %s", order.Symbol)
	}
}

// CancelOrder requests cancellation of an open order.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		return err
	}
	e.log.Info("order cancelled", "id", orderID)
	return nil
}

// GetOrder returns the current state of an order.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return e.broker.GetOrder(ctx, orderID)
}

// ListOrders returns recent orders filtered by status.
func (e *Engine) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	return e.broker.ListOrders(ctx, status, limit)
}

// GetPositions returns open positions passing the filter.
func (e *Engine) GetPositions(ctx context.Context, filter broker.PositionFilter) ([]domain.Position, error) {
	return e.broker.GetPositions(ctx, filter)
}

// GetAccount returns the current account snapshot.
func (e *Engine) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	return e.broker.GetAccount(ctx)
}

// GetOrderBook returns current quote depth for a symbol.
func (e *Engine) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	return e.broker.GetOrderBook(ctx, symbol)
}

// GetActivities returns recent account activity records.
func (e *Engine) GetActivities(ctx context.Context) ([]domain.Activity, error) {
	return e.broker.GetActivities(ctx)
}
