package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// QuoteFunc returns the current price for a symbol. The simulator fills
// market orders at this price.
type QuoteFunc func(ctx context.Context, symbol string) (float64, error)

// SimulatorBroker implements the Broker interface for paper trading without
// an external brokerage. Orders fill immediately at the quoted price; cash
// and positions are tracked in memory.
type SimulatorBroker struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
	orderSeq  []string // insertion order, oldest first
	quote     QuoteFunc
}

// NewSimulatorBroker creates a SimulatorBroker with the given starting cash.
// Market orders fill at the price returned by quote; limit orders fill at
// their limit price.
func NewSimulatorBroker(startingCash float64, quote QuoteFunc) *SimulatorBroker {
	return &SimulatorBroker{
		cash:      startingCash,
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
		quote:     quote,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string { return "simulator" }

// SubmitOrder fills the order immediately and adjusts cash and positions.
func (b *SimulatorBroker) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	price, err := b.fillPrice(ctx, order)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, fmt.Errorf("no quote available for %s", order.Symbol)
	}
	if order.Qty <= 0 {
		return nil, fmt.Errorf("order qty must be positive, got %v", order.Qty)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	filled := *order
	filled.ID = uuid.NewString()
	filled.Status = domain.OrderStatusFilled
	filled.FilledQty = order.Qty
	filled.FilledAvgPrice = price
	filled.CreatedAt = now
	filled.UpdatedAt = now

	cost := order.Qty * price
	switch order.Side {
	case domain.OrderSideBuy:
		if cost > b.cash {
			return nil, fmt.Errorf("insufficient cash: need %.2f, have %.2f", cost, b.cash)
		}
		b.cash -= cost
		b.applyBuy(order.Symbol, order.Qty, price)
	case domain.OrderSideSell:
		pos := b.positions[order.Symbol]
		if pos == nil || pos.Qty < order.Qty {
			return nil, fmt.Errorf("insufficient position in %s to sell %v", order.Symbol, order.Qty)
		}
		b.cash += cost
		pos.Qty -= order.Qty
		if pos.Qty == 0 {
			delete(b.positions, order.Symbol)
		}
	default:
		return nil, fmt.Errorf("unknown order side %q", order.Side)
	}

	b.orders[filled.ID] = &filled
	b.orderSeq = append(b.orderSeq, filled.ID)

	result := filled
	return &result, nil
}

// fillPrice determines the execution price for an order.
func (b *SimulatorBroker) fillPrice(ctx context.Context, order *domain.Order) (float64, error) {
	if order.Type == domain.OrderTypeLimit && order.LimitPrice != nil {
		return *order.LimitPrice, nil
	}
	if b.quote == nil {
		return 0, fmt.Errorf("no quote source configured")
	}
	return b.quote(ctx, order.Symbol)
}

// applyBuy merges a buy fill into the position for symbol, averaging the
// entry price. Caller holds the lock.
func (b *SimulatorBroker) applyBuy(symbol string, qty, price float64) {
	pos := b.positions[symbol]
	if pos == nil {
		b.positions[symbol] = &domain.Position{
			Symbol:        symbol,
			Market:        domain.MarketUS,
			Qty:           qty,
			Side:          domain.PositionSideLong,
			AvgEntryPrice: price,
		}
		return
	}
	total := pos.Qty + qty
	pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Qty + price*qty) / total
	pos.Qty = total
}

// CancelOrder marks an order cancelled. Filled orders cannot be cancelled.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status == domain.OrderStatusFilled {
		return fmt.Errorf("order %s already filled", orderID)
	}
	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// GetOrder returns a copy of the order with the given ID.
func (b *SimulatorBroker) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// ListOrders returns recorded orders, newest first.
func (b *SimulatorBroker) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var orders []domain.Order
	for i := len(b.orderSeq) - 1; i >= 0 && len(orders) < limit; i-- {
		o := b.orders[b.orderSeq[i]]
		if status == "open" && o.Status != domain.OrderStatusNew && o.Status != domain.OrderStatusAccepted {
			continue
		}
		if status == "closed" && o.Status != domain.OrderStatusFilled && o.Status != domain.OrderStatusCancelled {
			continue
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// GetPositions returns simulated positions passing the filter, refreshed
// against current quotes where a quote source is available.
func (b *SimulatorBroker) GetPositions(ctx context.Context, filter PositionFilter) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		pos := *p
		if b.quote != nil {
			if price, err := b.quote(ctx, pos.Symbol); err == nil && price > 0 {
				pos.MarketValue = pos.Qty * price
				pos.UnrealizedPL = (price - pos.AvgEntryPrice) * pos.Qty
				if pos.AvgEntryPrice > 0 {
					pos.PLRatio = price/pos.AvgEntryPrice - 1
				}
			}
		}
		if filter.Matches(pos) {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions, nil
}

// GetAccount computes the simulated account snapshot from cash and positions.
func (b *SimulatorBroker) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	positions, err := b.GetPositions(ctx, PositionFilter{})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, p := range positions {
		if p.MarketValue > 0 {
			equity += p.MarketValue
		} else {
			equity += p.Qty * p.AvgEntryPrice
		}
	}
	return &domain.AccountInfo{
		ID:             "simulator",
		Currency:       "USD",
		Cash:           b.cash,
		Equity:         equity,
		BuyingPower:    b.cash,
		PortfolioValue: equity,
	}, nil
}

// GetOrderBook synthesizes a one-level book around the current quote.
func (b *SimulatorBroker) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	if b.quote == nil {
		return nil, fmt.Errorf("no quote source configured")
	}
	price, err := b.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &domain.OrderBook{
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Bids:      []domain.BookLevel{{Price: price, Size: 100}},
		Asks:      []domain.BookLevel{{Price: price, Size: 100}},
	}, nil
}

// GetActivities reports each fill as a trade activity, oldest first.
func (b *SimulatorBroker) GetActivities(_ context.Context) ([]domain.Activity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var activities []domain.Activity
	for _, id := range b.orderSeq {
		o := b.orders[id]
		if o.Status != domain.OrderStatusFilled {
			continue
		}
		activities = append(activities, domain.Activity{
			ID:        o.ID,
			Type:      "FILL",
			Symbol:    o.Symbol,
			Side:      string(o.Side),
			Qty:       o.FilledQty,
			Price:     o.FilledAvgPrice,
			Timestamp: o.UpdatedAt,
		})
	}
	return activities, nil
}
