package backtest

import (
	"fmt"
	"math"
	"time"

	"tradegate/internal/domain"
)

// EquityPoint is one point of the simulated equity curve. Exactly one point
// is produced per input bar, whether or not a trade fired.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Price     float64   `json:"price"`
}

// TradeRecord is one executed transition in the simulated trade log.
type TradeRecord struct {
	Timestamp time.Time        `json:"timestamp"`
	Action    domain.OrderSide `json:"action"`
	Price     float64          `json:"price"`
	Shares    float64          `json:"shares"`
	Value     float64          `json:"value"`
	Cash      float64          `json:"cash"` // cash remaining after the trade
}

// Policy selects how buys are sized during simulation. Two policies exist
// because two call paths need them: the HTTP backtest endpoint uses the
// all-in model, the live-mode strategy backtest uses whole-share sizing at a
// fixed fraction of available cash.
type Policy struct {
	name        string
	fraction    float64
	wholeShares bool
}

// Name returns the policy identifier.
func (p Policy) Name() string { return p.name }

// PolicyAllIn converts 100% of cash into (fractional) shares on a buy and
// fully liquidates on a sell.
var PolicyAllIn = Policy{name: "all_in", fraction: 1.0}

// PolicyFixedFraction sizes each buy as whole shares bought with the given
// fraction of available cash, and fully liquidates on a sell.
func PolicyFixedFraction(fraction float64) Policy {
	return Policy{name: "fixed_fraction", fraction: fraction, wholeShares: true}
}

// Simulate replays a parallel price/signal series through the all-in/all-out
// single-position model, starting from initialCapital, and returns the
// per-bar equity curve and the trade log.
//
// Cash and share balances are never negative: buys only fire when flat,
// sells only when holding. A non-positive bar price fails with
// ErrInvalidPrice.
func Simulate(bars []domain.Bar, signals []domain.SignalType, initialCapital float64, policy Policy) ([]EquityPoint, []TradeRecord, error) {
	if len(bars) != len(signals) {
		return nil, nil, fmt.Errorf("bar/signal length mismatch: %d bars, %d signals", len(bars), len(signals))
	}
	if initialCapital <= 0 {
		return nil, nil, fmt.Errorf("%w: initial capital must be positive (got %v)", ErrInvalidConfig, initialCapital)
	}

	cash := initialCapital
	shares := 0.0

	equity := make([]EquityPoint, 0, len(bars))
	var trades []TradeRecord

	for i := range bars {
		price := bars[i].Close
		if price <= 0 {
			return nil, nil, fmt.Errorf("%w: %s at %s closed at %v",
				ErrInvalidPrice, bars[i].Symbol, bars[i].Timestamp.Format("2006-01-02"), price)
		}

		switch {
		case signals[i] == domain.SignalTypeBuy && shares == 0:
			buy := cash * policy.fraction
			qty := buy / price
			value := buy
			if policy.wholeShares {
				qty = math.Floor(qty)
				value = qty * price
			}
			if qty > 0 {
				cash -= value
				shares = qty
				trades = append(trades, TradeRecord{
					Timestamp: bars[i].Timestamp,
					Action:    domain.OrderSideBuy,
					Price:     price,
					Shares:    qty,
					Value:     value,
					Cash:      cash,
				})
			}

		case signals[i] == domain.SignalTypeSell && shares > 0:
			value := shares * price
			cash += value
			trades = append(trades, TradeRecord{
				Timestamp: bars[i].Timestamp,
				Action:    domain.OrderSideSell,
				Price:     price,
				Shares:    shares,
				Value:     value,
				Cash:      cash,
			})
			shares = 0
		}

		equity = append(equity, EquityPoint{
			Timestamp: bars[i].Timestamp,
			Equity:    cash + shares*price,
			Price:     price,
		})
	}

	return equity, trades, nil
}
