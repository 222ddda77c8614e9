package strategy

import (
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// Tracker is a cost basis ledger for one logical trade. It accumulates the
// signed cash flow and the invested cost across long, short and flipped
// holdings, which is what per trade return is computed against.
type Tracker struct {
	shares      int64
	cash        fixed.Point
	commissions fixed.Point
	cost        fixed.Point
}

func NewTracker() *Tracker {
	return &Tracker{
		cash:        fixed.Zero,
		commissions: fixed.Zero,
		cost:        fixed.Zero,
	}
}

func (t *Tracker) Shares() int64 {
	return t.shares
}

func (t *Tracker) Cost() fixed.Point {
	return t.cost
}

func (t *Tracker) Commissions() fixed.Point {
	return t.commissions
}

// updateCost applies the cost basis transition for a signed quantity. An
// increase in the current direction adds its notional. A reduction adds
// nothing, that part of the profit is realized. Crossing zero adds the
// notional of the flipped remainder.
func (t *Tracker) updateCost(quantity int64, price fixed.Point) {
	cost := fixed.Zero

	switch {
	case t.shares > 0:
		if quantity > 0 {
			cost = price.MulInt64(quantity)
		} else if diff := t.shares + quantity; diff < 0 {
			cost = price.MulInt64(-diff)
		}
	case t.shares < 0:
		if quantity < 0 {
			cost = price.MulInt64(-quantity)
		} else if diff := t.shares + quantity; diff > 0 {
			cost = price.MulInt64(diff)
		}
	default:
		if quantity < 0 {
			cost = price.MulInt64(-quantity)
		} else {
			cost = price.MulInt64(quantity)
		}
	}

	t.cost = t.cost.Add(cost)
}

func (t *Tracker) Buy(quantity int64, price, commission fixed.Point) {
	t.updateCost(quantity, price)
	t.cash = t.cash.Sub(price.MulInt64(quantity))
	t.shares += quantity
	t.commissions = t.commissions.Add(commission)
}

func (t *Tracker) Sell(quantity int64, price, commission fixed.Point) {
	t.updateCost(-quantity, price)
	t.cash = t.cash.Add(price.MulInt64(quantity))
	t.shares -= quantity
	t.commissions = t.commissions.Add(commission)
}

// Update rebases the ledger at a new price, as if the current holding had
// just been acquired there. Used when carrying an open trade across
// accounting periods.
func (t *Tracker) Update(price fixed.Point) {
	t.commissions = fixed.Zero
	t.cash = price.MulInt64(-t.shares)
	abs := t.shares
	if abs < 0 {
		abs = -abs
	}
	t.cost = price.MulInt64(abs)
}

func (t *Tracker) NetProfit(price fixed.Point, includeCommissions bool) fixed.Point {
	profit := t.cash.Add(price.MulInt64(t.shares))
	if includeCommissions {
		profit = profit.Sub(t.commissions)
	}
	return profit
}

// Return is the net profit relative to the invested cost, zero when nothing
// was ever invested.
func (t *Tracker) Return(price fixed.Point, includeCommissions bool) fixed.Point {
	if t.cost.IsZero() {
		return fixed.Zero
	}
	return t.NetProfit(price, includeCommissions).Div(t.cost)
}
