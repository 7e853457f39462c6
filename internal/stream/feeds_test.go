package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	mdstream "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/shopspring/decimal"

	"tradegate/internal/domain"
)

func TestOrderFeedBroadcastsTradeUpdate(t *testing.T) {
	h := NewHub("orders")
	go h.Run()

	conn := dialHub(t, h)
	time.Sleep(50 * time.Millisecond)

	f := NewOrderFeed(nil, h)
	f.handle(alpaca.TradeUpdate{
		Event: "fill",
		Order: alpaca.Order{
			ID:        "ord-1",
			Symbol:    "AAPL",
			Side:      alpaca.Buy,
			Type:      alpaca.Market,
			Status:    "filled",
			FilledQty: decimal.NewFromInt(5),
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var update OrderUpdate
	if err := json.Unmarshal(msg, &update); err != nil {
		t.Fatalf("unmarshalling broadcast: %v", err)
	}
	if update.Event != "fill" {
		t.Errorf("Event = %q, want %q", update.Event, "fill")
	}
	if update.Order.ID != "ord-1" || update.Order.Symbol != "AAPL" {
		t.Errorf("Order = %+v, want id ord-1 symbol AAPL", update.Order)
	}
	if update.Order.FilledQty != 5 {
		t.Errorf("FilledQty = %v, want 5", update.Order.FilledQty)
	}
}

func TestQuoteFeedBroadcastsBookSnapshot(t *testing.T) {
	h := NewHub("orderbook")
	go h.Run()

	conn := dialHub(t, h)
	time.Sleep(50 * time.Millisecond)

	f := NewQuoteFeed("iex", "key", "secret", h)
	f.handle(mdstream.Quote{
		Symbol:   "MSFT",
		BidPrice: 99.5,
		BidSize:  100,
		AskPrice: 100.5,
		AskSize:  200,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var book domain.OrderBook
	if err := json.Unmarshal(msg, &book); err != nil {
		t.Fatalf("unmarshalling broadcast: %v", err)
	}
	if book.Symbol != "MSFT" {
		t.Errorf("Symbol = %q, want %q", book.Symbol, "MSFT")
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != 99.5 || book.Bids[0].Size != 100 {
		t.Errorf("Bids = %+v, want one level 99.5 x 100", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Price != 100.5 || book.Asks[0].Size != 200 {
		t.Errorf("Asks = %+v, want one level 100.5 x 200", book.Asks)
	}
}
