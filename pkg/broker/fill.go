package broker

import (
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// FillStrategy decides the execution price of an order against one bar.
// Returning ok=false means the order is not fillable on this bar.
type FillStrategy interface {
	FillPrice(order *common.Order, bar common.Bar, useAdjusted bool) (fixed.Point, bool)
}

// DefaultFill implements the standard bar-replay fill rules. Market orders
// fill at the open or the close. Limit and stop orders fill at their
// threshold, improved to the open when the bar gapped through it. Stop-limit
// orders track limit leg activation on the order itself.
type DefaultFill struct{}

type barPrices struct {
	open, high, low, close fixed.Point
}

func pricesOf(bar common.Bar, useAdjusted bool) barPrices {
	if useAdjusted {
		return barPrices{bar.AdjOpen(), bar.AdjHigh(), bar.AdjLow(), bar.AdjClose}
	}
	return barPrices{bar.Open, bar.High, bar.Low, bar.Close}
}

func (DefaultFill) FillPrice(order *common.Order, bar common.Bar, useAdjusted bool) (fixed.Point, bool) {
	p := pricesOf(bar, useAdjusted)

	switch order.Type() {
	case common.OrderTypeMarket:
		if order.FillOnClose() {
			return p.close, true
		}
		return p.open, true
	case common.OrderTypeLimit:
		return limitFillPrice(order.Action(), order.LimitPrice(), p)
	case common.OrderTypeStop:
		return stopFillPrice(order.Action(), order.StopPrice(), p)
	case common.OrderTypeStopLimit:
		return stopLimitFillPrice(order, p)
	default:
		return fixed.Zero, false
	}
}

// limitFillPrice fills when the bar reaches the limit price. A bar that
// gapped past the limit fills at the open, which is at least as good for the
// trader as the limit itself.
func limitFillPrice(action common.OrderAction, limitPrice fixed.Point, p barPrices) (fixed.Point, bool) {
	if action.IsBuy() {
		if p.high.Lt(limitPrice) {
			return p.open, true
		}
		if limitPrice.Gte(p.low) {
			return fixed.Min(p.open, limitPrice), true
		}
		return fixed.Zero, false
	}

	if p.low.Gt(limitPrice) {
		return p.open, true
	}
	if limitPrice.Lte(p.high) {
		return fixed.Max(p.open, limitPrice), true
	}
	return fixed.Zero, false
}

// stopFillPrice fills once the bar trades through the stop price. A bar that
// opened past the stop fills at the open, which is worse for the trader.
func stopFillPrice(action common.OrderAction, stopPrice fixed.Point, p barPrices) (fixed.Point, bool) {
	if action.IsBuy() {
		if p.low.Gt(stopPrice) {
			return p.open, true
		}
		if stopPrice.Lte(p.high) {
			return fixed.Max(p.open, stopPrice), true
		}
		return fixed.Zero, false
	}

	if p.high.Lt(stopPrice) {
		return p.open, true
	}
	if stopPrice.Gte(p.low) {
		return fixed.Min(p.open, stopPrice), true
	}
	return fixed.Zero, false
}

// stopHit reports whether the bar triggers the stop leg. Buys trigger when
// the bar trades at or above the stop, sells at or below.
func stopHit(action common.OrderAction, stopPrice fixed.Point, p barPrices) bool {
	if action.IsBuy() {
		return p.high.Gte(stopPrice)
	}
	return p.low.Lte(stopPrice)
}

// stopLimitFillPrice activates the limit leg the first time the stop is hit
// and evaluates the limit rule from then on, including the activation bar.
// When both thresholds were crossed within the activation bar the stop is
// assumed to have executed first, so the fill is clamped to the worse of the
// two prices.
func stopLimitFillPrice(order *common.Order, p barPrices) (fixed.Point, bool) {
	justActivated := false
	if !order.IsLimitActive() && stopHit(order.Action(), order.StopPrice(), p) {
		order.ActivateLimit()
		justActivated = true
	}
	if !order.IsLimitActive() {
		return fixed.Zero, false
	}

	price, ok := limitFillPrice(order.Action(), order.LimitPrice(), p)
	if !ok {
		return fixed.Zero, false
	}
	if justActivated {
		if order.Action().IsBuy() {
			price = fixed.Min(order.StopPrice(), order.LimitPrice())
		} else {
			price = fixed.Max(order.StopPrice(), order.LimitPrice())
		}
	}
	return price, true
}
