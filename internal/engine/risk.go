package engine

import (
	"context"
	"fmt"

	"tradegate/internal/domain"
)

// RiskManager enforces pre-trade risk rules such as position sizing limits.
type RiskManager struct {
	maxPositionPct float64
}

// NewRiskManager creates a RiskManager. maxPositionPct is the maximum
// fraction of equity allowed in a single order's notional (e.g. 0.10 for
// 10%); zero or negative disables the check.
func NewRiskManager(maxPositionPct float64) *RiskManager {
	return &RiskManager{maxPositionPct: maxPositionPct}
}

// CheckOrder evaluates whether the proposed order complies with the
// configured risk limits given the current account state. refPrice is the
// price used to estimate the order's notional value: the limit price for
// limit orders, the latest quote for market orders.
func (rm *RiskManager) CheckOrder(_ context.Context, order *domain.Order, account *domain.AccountInfo, refPrice float64) error {
	if rm.maxPositionPct <= 0 {
		return nil
	}
	if refPrice <= 0 {
		return fmt.Errorf("no reference price for %s", order.Symbol)
	}

	notional := order.Qty * refPrice
	limit := rm.maxPositionPct * account.Equity
	if notional > limit {
		return fmt.Errorf("order notional %.2f exceeds %.0f%% of equity (%.2f)",
			notional, rm.maxPositionPct*100, limit)
	}
	return nil
}
