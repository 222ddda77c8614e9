package broker

import (
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// Commission maps an execution to a monetary fee.
type Commission interface {
	Calculate(order *common.Order, price fixed.Point, quantity int64) fixed.Point
}

type NoCommission struct{}

func (NoCommission) Calculate(*common.Order, fixed.Point, int64) fixed.Point {
	return fixed.Zero
}

// FixedPerTrade charges a flat amount per executed order.
type FixedPerTrade struct {
	Amount fixed.Point
}

func (c FixedPerTrade) Calculate(*common.Order, fixed.Point, int64) fixed.Point {
	return c.Amount
}

// TradePercentage charges a fraction of the traded notional, e.g. 0.001 for
// ten basis points.
type TradePercentage struct {
	Percentage fixed.Point
}

func (c TradePercentage) Calculate(_ *common.Order, price fixed.Point, quantity int64) fixed.Point {
	return price.MulInt64(quantity).Mul(c.Percentage)
}
