package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradegate/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker implements the Broker interface using the Alpaca brokerage
// API for order execution and the Alpaca market-data API for quotes.
type AlpacaBroker struct {
	trading *alpaca.Client
	data    *marketdata.Client
	feed    marketdata.Feed
	log     *slog.Logger
}

// AlpacaBrokerOpts configures an AlpacaBroker.
type AlpacaBrokerOpts struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API endpoint (paper or live)
	DataURL   string // market-data API endpoint, empty for default
	Feed      string // "iex" or "sip"
}

// NewAlpacaBroker creates an AlpacaBroker configured with the given
// credentials and API endpoints.
func NewAlpacaBroker(opts AlpacaBrokerOpts) *AlpacaBroker {
	dataOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		dataOpts.BaseURL = opts.DataURL
	}
	feed := marketdata.Feed(opts.Feed)
	if feed == "" {
		feed = marketdata.IEX
	}

	return &AlpacaBroker{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    opts.APIKey,
			APISecret: opts.APISecret,
			BaseURL:   opts.BaseURL,
		}),
		data: marketdata.NewClient(dataOpts),
		feed: feed,
		log:  slog.Default().With("component", "broker", "broker", "alpaca"),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

// SubmitOrder sends the order to the Alpaca trading API.
func (b *AlpacaBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	qty := decimal.NewFromFloat(order.Qty)
	req := alpaca.PlaceOrderRequest{
		Symbol:      strings.ToUpper(order.Symbol),
		Qty:         &qty,
		Side:        alpaca.Side(order.Side),
		Type:        alpaca.OrderType(order.Type),
		TimeInForce: alpaca.Day,
	}
	if order.Type == domain.OrderTypeLimit {
		if order.LimitPrice == nil {
			return nil, fmt.Errorf("limit order for %s missing limit price", order.Symbol)
		}
		lp := decimal.NewFromFloat(*order.LimitPrice)
		req.LimitPrice = &lp
	}

	placed, err := b.trading.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("placing order %s %s %v: %w", order.Side, order.Symbol, order.Qty, err)
	}
	b.log.Info("order submitted",
		"id", placed.ID, "symbol", placed.Symbol,
		"side", placed.Side, "qty", order.Qty,
	)
	return fromAlpacaOrder(placed), nil
}

// CancelOrder requests cancellation of an open order.
func (b *AlpacaBroker) CancelOrder(_ context.Context, orderID string) error {
	if err := b.trading.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// GetOrder retrieves the current state of an order.
func (b *AlpacaBroker) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	o, err := b.trading.GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", orderID, err)
	}
	return fromAlpacaOrder(o), nil
}

// ListOrders returns recent orders filtered by status.
func (b *AlpacaBroker) ListOrders(_ context.Context, status string, limit int) ([]domain.Order, error) {
	if status == "" {
		status = "all"
	}
	if limit <= 0 {
		limit = 100
	}
	alpacaOrders, err := b.trading.GetOrders(alpaca.GetOrdersRequest{
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(alpacaOrders))
	for i := range alpacaOrders {
		orders = append(orders, *fromAlpacaOrder(&alpacaOrders[i]))
	}
	return orders, nil
}

// GetPositions returns current positions passing the filter. All Alpaca
// positions belong to the US market.
func (b *AlpacaBroker) GetPositions(_ context.Context, filter PositionFilter) ([]domain.Position, error) {
	alpacaPositions, err := b.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("getting positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(alpacaPositions))
	for _, p := range alpacaPositions {
		pos := domain.Position{
			Symbol:        p.Symbol,
			Market:        domain.MarketUS,
			Qty:           p.Qty.InexactFloat64(),
			Side:          domain.PositionSide(p.Side),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		}
		if p.MarketValue != nil {
			pos.MarketValue = p.MarketValue.InexactFloat64()
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = p.UnrealizedPL.InexactFloat64()
		}
		if p.UnrealizedPLPC != nil {
			pos.PLRatio = p.UnrealizedPLPC.InexactFloat64()
		}
		if filter.Matches(pos) {
			positions = append(positions, pos)
		}
	}
	return positions, nil
}

// GetAccount returns the current account snapshot.
func (b *AlpacaBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	acct, err := b.trading.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return &domain.AccountInfo{
		ID:             acct.ID,
		Currency:       acct.Currency,
		Cash:           acct.Cash.InexactFloat64(),
		Equity:         acct.Equity.InexactFloat64(),
		BuyingPower:    acct.BuyingPower.InexactFloat64(),
		PortfolioValue: acct.PortfolioValue.InexactFloat64(),
	}, nil
}

// GetOrderBook returns the latest NBBO quote for a symbol as a single-level
// book. Alpaca's equities feed exposes top-of-book only.
func (b *AlpacaBroker) GetOrderBook(_ context.Context, symbol string) (*domain.OrderBook, error) {
	symbol = strings.ToUpper(symbol)
	quote, err := b.data.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{Feed: b.feed})
	if err != nil {
		return nil, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return &domain.OrderBook{
		Symbol:    symbol,
		Timestamp: quote.Timestamp,
		Bids:      []domain.BookLevel{{Price: quote.BidPrice, Size: int64(quote.BidSize)}},
		Asks:      []domain.BookLevel{{Price: quote.AskPrice, Size: int64(quote.AskSize)}},
	}, nil
}

// LatestPrice returns the NBBO midpoint for a symbol, falling back to
// whichever side is quoted when the book is one-sided.
func (b *AlpacaBroker) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	book, err := b.GetOrderBook(ctx, symbol)
	if err != nil {
		return 0, err
	}
	bid, ask := book.Bids[0].Price, book.Asks[0].Price
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2, nil
	case ask > 0:
		return ask, nil
	case bid > 0:
		return bid, nil
	}
	return 0, fmt.Errorf("no quoted price for %s", symbol)
}

// TradingClient exposes the underlying Alpaca trading client for callers
// that need the raw streaming API, such as the order-update feed.
func (b *AlpacaBroker) TradingClient() *alpaca.Client { return b.trading }

// GetActivities returns recent account activities.
func (b *AlpacaBroker) GetActivities(_ context.Context) ([]domain.Activity, error) {
	alpacaActivities, err := b.trading.GetAccountActivities(alpaca.GetAccountActivitiesRequest{})
	if err != nil {
		return nil, fmt.Errorf("getting account activities: %w", err)
	}

	activities := make([]domain.Activity, 0, len(alpacaActivities))
	for _, a := range alpacaActivities {
		activities = append(activities, domain.Activity{
			ID:        a.ID,
			Type:      a.ActivityType,
			Symbol:    a.Symbol,
			Side:      a.Side,
			Qty:       a.Qty.InexactFloat64(),
			Price:     a.Price.InexactFloat64(),
			Timestamp: a.TransactionTime,
		})
	}
	return activities, nil
}

// fromAlpacaOrder converts an Alpaca SDK order into the domain representation.
func fromAlpacaOrder(o *alpaca.Order) *domain.Order {
	order := &domain.Order{
		ID:        o.ID,
		Symbol:    o.Symbol,
		Side:      domain.OrderSide(o.Side),
		Type:      domain.OrderType(o.Type),
		Status:    normalizeStatus(o.Status),
		FilledQty: o.FilledQty.InexactFloat64(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.Qty != nil {
		order.Qty = o.Qty.InexactFloat64()
	}
	if o.LimitPrice != nil {
		lp := o.LimitPrice.InexactFloat64()
		order.LimitPrice = &lp
	}
	if o.FilledAvgPrice != nil {
		order.FilledAvgPrice = o.FilledAvgPrice.InexactFloat64()
	}
	return order
}

// normalizeStatus maps Alpaca order statuses onto the domain lifecycle states.
func normalizeStatus(s string) domain.OrderStatus {
	switch s {
	case "new", "pending_new":
		return domain.OrderStatusNew
	case "accepted", "partially_filled":
		return domain.OrderStatusAccepted
	case "filled":
		return domain.OrderStatusFilled
	case "canceled", "pending_cancel", "expired":
		return domain.OrderStatusCancelled
	case "rejected":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatus(s)
	}
}
