package api

import "tradegate/internal/domain"

// orderRequest is the body of POST /api/v1/trade/order.
type orderRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"` // "buy" or "sell"
	Type       string   `json:"type"` // "market" or "limit"
	Qty        float64  `json:"qty"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
}

// orderResponse wraps a single order.
type orderResponse struct {
	Order orderDTO `json:"order"`
}

// orderDTO is the wire representation of an order.
type orderDTO struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	Qty            float64  `json:"qty"`
	LimitPrice     *float64 `json:"limit_price,omitempty"`
	FilledQty      float64  `json:"filled_qty"`
	FilledAvgPrice float64  `json:"filled_avg_price"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	return orderDTO{
		ID:             o.ID,
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Status:         string(o.Status),
		Qty:            o.Qty,
		LimitPrice:     o.LimitPrice,
		FilledQty:      o.FilledQty,
		FilledAvgPrice: o.FilledAvgPrice,
		CreatedAt:      o.CreatedAt.Format(timeLayout),
		UpdatedAt:      o.UpdatedAt.Format(timeLayout),
	}
}

// positionsRequest is the body of POST /api/v1/market/positions.
type positionsRequest struct {
	Market     string   `json:"market,omitempty"` // "us", "cn", or "" for all
	PLRatioMin *float64 `json:"pl_ratio_min,omitempty"`
	PLRatioMax *float64 `json:"pl_ratio_max,omitempty"`
}

// ordersRequest is the body of POST /api/v1/account/orders.
type ordersRequest struct {
	Status string `json:"status,omitempty"` // "open", "closed", or "" for all
	Limit  int    `json:"limit,omitempty"`
}

// strategyRunRequest is the body of POST /api/v1/strategy/run.
type strategyRunRequest struct {
	StrategyID     string             `json:"strategy_id"`
	Symbol         string             `json:"symbol"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
	Qty            float64            `json:"qty,omitempty"`
	IsBacktest     bool               `json:"is_backtest,omitempty"`
	StartDate      string             `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate        string             `json:"end_date,omitempty"`
	InitialCapital float64            `json:"initial_capital,omitempty"`
}

// backtestRequest is the body of POST /api/v1/backtest.
type backtestRequest struct {
	StrategyID     string             `json:"strategy_id"`
	Symbol         string             `json:"symbol"`
	StartDate      string             `json:"start_date"` // YYYY-MM-DD
	EndDate        string             `json:"end_date"`
	InitialCapital float64            `json:"initial_capital,omitempty"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
}
