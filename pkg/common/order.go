package common

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/utility"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

type OrderType int
type OrderAction int
type OrderState int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
)

const (
	OrderActionBuy OrderAction = iota
	OrderActionBuyToCover
	OrderActionSell
	OrderActionSellShort
)

const (
	OrderStateAccepted OrderState = iota
	OrderStateCanceled
	OrderStateFilled
)

var (
	ErrOrderNotAccepted   = errors.New("order is not in accepted state")
	ErrOrderAlreadyFilled = errors.New("order is already filled")
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stop-limit"
	default:
		return "unknown"
	}
}

func (a OrderAction) String() string {
	switch a {
	case OrderActionBuy:
		return "buy"
	case OrderActionBuyToCover:
		return "buy-to-cover"
	case OrderActionSell:
		return "sell"
	case OrderActionSellShort:
		return "sell-short"
	default:
		return "unknown"
	}
}

func (s OrderState) String() string {
	switch s {
	case OrderStateAccepted:
		return "accepted"
	case OrderStateCanceled:
		return "canceled"
	case OrderStateFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// IsBuy reports whether the action increases the share count.
func (a OrderAction) IsBuy() bool {
	return a == OrderActionBuy || a == OrderActionBuyToCover
}

// ExecutionInfo describes a filled order. Set exactly once, at fill time.
type ExecutionInfo struct {
	Price      fixed.Point `json:"price"`
	Quantity   int64       `json:"quantity"`
	Commission fixed.Point `json:"commission"`
	TimeStamp  time.Time   `json:"ts"`
}

// Order is a single instruction to trade. The state machine starts in
// Accepted and ends in Filled or Canceled; no transition leaves a terminal
// state. All mutating setters flag the order dirty so that re-submitting a
// modified order is an explicit operation on the broker.
type Order struct {
	id                utility.TraceID
	orderType         OrderType
	action            OrderAction
	symbol            string
	quantity          int64
	limitPrice        fixed.Point
	stopPrice         fixed.Point
	fillOnClose       bool
	goodUntilCanceled bool

	state       OrderState
	executed    bool
	execInfo    ExecutionInfo
	limitActive bool
	dirty       bool
}

func NewMarketOrder(action OrderAction, symbol string, quantity int64, fillOnClose bool) *Order {
	return &Order{
		id:          utility.CreateTraceID(),
		orderType:   OrderTypeMarket,
		action:      action,
		symbol:      symbol,
		quantity:    quantity,
		fillOnClose: fillOnClose,
	}
}

func NewLimitOrder(action OrderAction, symbol string, limitPrice fixed.Point, quantity int64) *Order {
	return &Order{
		id:         utility.CreateTraceID(),
		orderType:  OrderTypeLimit,
		action:     action,
		symbol:     symbol,
		quantity:   quantity,
		limitPrice: limitPrice,
	}
}

func NewStopOrder(action OrderAction, symbol string, stopPrice fixed.Point, quantity int64) *Order {
	return &Order{
		id:        utility.CreateTraceID(),
		orderType: OrderTypeStop,
		action:    action,
		symbol:    symbol,
		quantity:  quantity,
		stopPrice: stopPrice,
	}
}

func NewStopLimitOrder(action OrderAction, symbol string, stopPrice, limitPrice fixed.Point, quantity int64) *Order {
	return &Order{
		id:         utility.CreateTraceID(),
		orderType:  OrderTypeStopLimit,
		action:     action,
		symbol:     symbol,
		quantity:   quantity,
		stopPrice:  stopPrice,
		limitPrice: limitPrice,
	}
}

func (o *Order) Id() utility.TraceID     { return o.id }
func (o *Order) Type() OrderType         { return o.orderType }
func (o *Order) Action() OrderAction     { return o.action }
func (o *Order) Symbol() string          { return o.symbol }
func (o *Order) Quantity() int64         { return o.quantity }
func (o *Order) LimitPrice() fixed.Point { return o.limitPrice }
func (o *Order) StopPrice() fixed.Point  { return o.stopPrice }
func (o *Order) FillOnClose() bool       { return o.fillOnClose }
func (o *Order) GoodUntilCanceled() bool { return o.goodUntilCanceled }
func (o *Order) State() OrderState       { return o.state }
func (o *Order) IsAccepted() bool        { return o.state == OrderStateAccepted }
func (o *Order) IsCanceled() bool        { return o.state == OrderStateCanceled }
func (o *Order) IsFilled() bool          { return o.state == OrderStateFilled }
func (o *Order) IsDirty() bool           { return o.dirty }

// ExecutionInfo returns the fill details, valid only once the order is
// filled.
func (o *Order) ExecutionInfo() (ExecutionInfo, bool) {
	return o.execInfo, o.executed
}

func (o *Order) SetQuantity(quantity int64) {
	o.quantity = quantity
	o.dirty = true
}

func (o *Order) SetLimitPrice(limitPrice fixed.Point) {
	o.limitPrice = limitPrice
	o.dirty = true
}

func (o *Order) SetStopPrice(stopPrice fixed.Point) {
	o.stopPrice = stopPrice
	o.dirty = true
}

func (o *Order) SetFillOnClose(fillOnClose bool) {
	o.fillOnClose = fillOnClose
	o.dirty = true
}

func (o *Order) SetGoodUntilCanceled(goodUntilCanceled bool) {
	o.goodUntilCanceled = goodUntilCanceled
	o.dirty = true
}

func (o *Order) SetDirty(dirty bool) {
	o.dirty = dirty
}

// IsLimitActive reports whether the limit leg of a stop-limit order has been
// activated by its stop price.
func (o *Order) IsLimitActive() bool {
	return o.limitActive
}

func (o *Order) ActivateLimit() {
	o.limitActive = true
}

// Fill transitions the order to Filled and records the execution details.
// Only an accepted order can be filled.
func (o *Order) Fill(info ExecutionInfo) error {
	if o.state != OrderStateAccepted {
		return ErrOrderNotAccepted
	}
	o.execInfo = info
	o.executed = true
	o.state = OrderStateFilled
	return nil
}

// MarkCanceled transitions the order to Canceled. A filled order cannot be
// canceled.
func (o *Order) MarkCanceled() error {
	if o.state == OrderStateFilled {
		return ErrOrderAlreadyFilled
	}
	o.state = OrderStateCanceled
	return nil
}

func (o *Order) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Uint64("id", o.id),
		zap.Stringer("type", o.orderType),
		zap.Stringer("action", o.action),
		zap.Stringer("state", o.state),
		zap.String("symbol", o.symbol),
		zap.Int64("quantity", o.quantity),
		zap.Bool("gtc", o.goodUntilCanceled),
	}
	switch o.orderType {
	case OrderTypeLimit:
		fields = append(fields, zap.Stringer("limit_price", o.limitPrice))
	case OrderTypeStop:
		fields = append(fields, zap.Stringer("stop_price", o.stopPrice))
	case OrderTypeStopLimit:
		fields = append(fields,
			zap.Stringer("stop_price", o.stopPrice),
			zap.Stringer("limit_price", o.limitPrice))
	}
	return fields
}
