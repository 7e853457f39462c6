// Package domain defines the core data types shared across the tradegate
// platform: market data bars, trades, orders, positions, and signals.
package domain

import "time"

// Market identifies the venue a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is a single OHLCV observation for a symbol, typically one trading day.
// Sequences of bars are ordered by strictly increasing Timestamp.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Trade is a single executed trade tick.
type Trade struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Size      int64
	Exchange  string
	ID        string
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  int64   `json:"size"`
}

// OrderBook holds top-of-book (or deeper) quote data for a symbol.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the execution type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order represents a brokerage order and its execution state.
type Order struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           OrderSide   `json:"side"`
	Type           OrderType   `json:"type"`
	Status         OrderStatus `json:"status"`
	Qty            float64     `json:"qty"`
	LimitPrice     *float64    `json:"limit_price,omitempty"` // nil for market orders
	FilledQty      float64     `json:"filled_qty"`
	FilledAvgPrice float64     `json:"filled_avg_price"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Positions & account
// ---------------------------------------------------------------------------

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is an open holding in a single symbol.
type Position struct {
	Symbol        string       `json:"symbol"`
	Market        Market       `json:"market"`
	Qty           float64      `json:"qty"`
	Side          PositionSide `json:"side"`
	AvgEntryPrice float64      `json:"avg_entry_price"`
	MarketValue   float64      `json:"market_value"`
	UnrealizedPL  float64      `json:"unrealized_pl"`
	PLRatio       float64      `json:"pl_ratio"`
}

// AccountInfo is a snapshot of the account's financial metrics.
type AccountInfo struct {
	ID             string  `json:"id"`
	Currency       string  `json:"currency"`
	Cash           float64 `json:"cash"`
	Equity         float64 `json:"equity"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// Activity is a single account activity record (fill, dividend, transfer...).
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Symbol    string    `json:"symbol,omitempty"`
	Side      string    `json:"side,omitempty"`
	Qty       float64   `json:"qty,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// SignalType is a trading signal emitted by a strategy for a single bar.
type SignalType string

const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
	SignalTypeHold SignalType = "hold"
)

// Signal records a signal emitted by a strategy run.
type Signal struct {
	StrategyID string     `json:"strategy_id"`
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"type"`
	Price      float64    `json:"price"`
	CreatedAt  time.Time  `json:"created_at"`
}
