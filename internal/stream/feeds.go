package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	mdstream "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"

	"tradegate/internal/domain"
)

// reconnectDelay paces reconnection attempts after a dropped stream.
const reconnectDelay = 5 * time.Second

// OrderUpdate is the wire format broadcast on the order-status feed.
type OrderUpdate struct {
	Event string       `json:"event"`
	Order domain.Order `json:"order"`
}

// OrderFeed relays Alpaca trade-update events to a Hub as JSON messages.
type OrderFeed struct {
	client *alpaca.Client
	hub    *Hub
	log    *slog.Logger
}

// NewOrderFeed creates an OrderFeed publishing to hub.
func NewOrderFeed(client *alpaca.Client, hub *Hub) *OrderFeed {
	return &OrderFeed{
		client: client,
		hub:    hub,
		log:    slog.Default().With("component", "stream", "feed", "orders"),
	}
}

// Run streams trade updates until ctx is cancelled, reconnecting with
// backoff on transient errors.
func (f *OrderFeed) Run(ctx context.Context) error {
	for {
		err := f.client.StreamTradeUpdates(ctx, f.handle, alpaca.StreamTradeUpdatesRequest{})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn("trade-update stream dropped, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *OrderFeed) handle(tu alpaca.TradeUpdate) {
	payload, err := json.Marshal(OrderUpdate{
		Event: tu.Event,
		Order: domain.Order{
			ID:        tu.Order.ID,
			Symbol:    tu.Order.Symbol,
			Side:      domain.OrderSide(tu.Order.Side),
			Type:      domain.OrderType(tu.Order.Type),
			Status:    domain.OrderStatus(tu.Order.Status),
			FilledQty: tu.Order.FilledQty.InexactFloat64(),
			CreatedAt: tu.Order.CreatedAt,
			UpdatedAt: tu.Order.UpdatedAt,
		},
	})
	if err != nil {
		f.log.Error("marshalling order update", "error", err)
		return
	}
	f.hub.Broadcast(payload)
}

// QuoteFeed relays live NBBO quotes for a set of symbols to a Hub as
// order-book snapshots.
type QuoteFeed struct {
	client *mdstream.StocksClient
	hub    *Hub
	log    *slog.Logger
}

// NewQuoteFeed creates a QuoteFeed for the given feed ("iex" or "sip") and
// credentials, publishing to hub.
func NewQuoteFeed(feed, apiKey, apiSecret string, hub *Hub) *QuoteFeed {
	return &QuoteFeed{
		client: mdstream.NewStocksClient(feed, mdstream.WithCredentials(apiKey, apiSecret)),
		hub:    hub,
		log:    slog.Default().With("component", "stream", "feed", "quotes"),
	}
}

// Run connects to the market-data stream, subscribes to quotes for symbols,
// and blocks until ctx is cancelled or the stream terminates.
func (f *QuoteFeed) Run(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	for i, s := range symbols {
		symbols[i] = strings.ToUpper(s)
	}

	if err := f.client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting quote stream: %w", err)
	}
	if err := f.client.SubscribeToQuotes(f.handle, symbols...); err != nil {
		return fmt.Errorf("subscribing to quotes: %w", err)
	}
	f.log.Info("quote stream connected", "symbols", symbols)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-f.client.Terminated():
		return err
	}
}

func (f *QuoteFeed) handle(q mdstream.Quote) {
	book := domain.OrderBook{
		Symbol:    q.Symbol,
		Timestamp: q.Timestamp,
		Bids:      []domain.BookLevel{{Price: q.BidPrice, Size: int64(q.BidSize)}},
		Asks:      []domain.BookLevel{{Price: q.AskPrice, Size: int64(q.AskSize)}},
	}
	payload, err := json.Marshal(book)
	if err != nil {
		f.log.Error("marshalling quote", "error", err)
		return
	}
	f.hub.Broadcast(payload)
}
