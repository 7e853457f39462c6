// Package tradegate provides a Go client for the tradegate-server HTTP API.
// The types here mirror the server's JSON wire format and carry no server
// internals, so the package is importable from outside the module tree.
package tradegate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a tradegate-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// Order is an order as reported by the server.
type Order struct {
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

// OrderRequest is the payload for SubmitOrder.
type OrderRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"` // "buy" or "sell"
	Type       string   `json:"type"` // "market" or "limit"
	Qty        float64  `json:"qty"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
}

// Position is one holding in the account.
type Position struct {
	Symbol        string  `json:"symbol"`
	Market        string  `json:"market"`
	Qty           float64 `json:"qty"`
	Side          string  `json:"side"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	PLRatio       float64 `json:"pl_ratio"`
}

// Account summarises the trading account.
type Account struct {
	ID             string  `json:"id"`
	Currency       string  `json:"currency"`
	Cash           float64 `json:"cash"`
	Equity         float64 `json:"equity"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  int64   `json:"size"`
}

// OrderBook is a top-of-book snapshot.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// BacktestRequest is the payload for RunBacktest.
type BacktestRequest struct {
	StrategyID     string             `json:"strategy_id"`
	Symbol         string             `json:"symbol"`
	StartDate      string             `json:"start_date"` // YYYY-MM-DD
	EndDate        string             `json:"end_date"`
	InitialCapital float64            `json:"initial_capital,omitempty"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
}

// BacktestMetrics summarises a backtest run.
type BacktestMetrics struct {
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

// GraphPoint is one bar of the backtest result series.
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

// BacktestResult is the response of RunBacktest.
type BacktestResult struct {
	Metrics BacktestMetrics `json:"metrics"`
	Graph   []GraphPoint    `json:"graph_data"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tradegate: HTTP %d: %s", e.StatusCode, e.Message)
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Health reports whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, &resp)
}

// SubmitOrder places an order and returns it with the server-assigned ID and
// fill state.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/trade/order", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// GetOrder fetches one order by ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	path := "/api/v1/trade/order/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	var resp map[string]string
	path := "/api/v1/trade/order/" + url.PathEscape(orderID)
	return c.do(ctx, http.MethodDelete, path, nil, &resp)
}

// GetAccount retrieves account balance information.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/account/balance", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetPositions retrieves positions, optionally filtered by market ("us",
// "cn", or "" for all).
func (c *Client) GetPositions(ctx context.Context, market string) ([]Position, error) {
	req := map[string]string{}
	if market != "" {
		req["market"] = market
	}
	var resp struct {
		Positions []Position `json:"positions"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/market/positions", req, &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// GetOrderBook retrieves the current top-of-book snapshot for a symbol.
func (c *Client) GetOrderBook(ctx context.Context, symbol string) (*OrderBook, error) {
	var book OrderBook
	path := "/api/v1/market/orderbook/" + url.PathEscape(symbol)
	if err := c.do(ctx, http.MethodGet, path, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// ListStrategies returns the registered strategy IDs.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var resp struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/strategy/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// RunBacktest executes a backtest on the server and returns its result.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	var result BacktestResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtest", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
