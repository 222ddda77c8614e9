package broker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

var (
	ErrOrderAlreadyPlaced = errors.New("order is already placed")
	ErrOrderNotTracked    = errors.New("order is not tracked by the broker")
	ErrOrderNotDirty      = errors.New("order has no pending modifications")
)

// BarSource provides the bars the broker values holdings against and falls
// back to when a symbol skips a timestamp.
type BarSource interface {
	CurrentBars() common.Bars
	LastBar(symbol string) (common.Bar, bool)
}

// Broker simulates order execution against replayed bars. It owns the cash
// and share ledger exclusively; all mutation happens during its own OnBars
// settlement pass or through the synchronous order operations.
type Broker struct {
	logger *zap.Logger
	router *bus.Router
	source BarSource

	cash         fixed.Point
	shares       map[string]int64
	activeOrders []*common.Order

	commission        Commission
	fill              FillStrategy
	useAdjusted       bool
	allowNegativeCash bool
}

type Option func(*Broker)

func WithCommission(c Commission) Option {
	return func(b *Broker) { b.commission = c }
}

func WithFillStrategy(fs FillStrategy) Option {
	return func(b *Broker) { b.fill = fs }
}

func WithAdjustedPrices() Option {
	return func(b *Broker) { b.useAdjusted = true }
}

func WithNegativeCashAllowed() Option {
	return func(b *Broker) { b.allowNegativeCash = true }
}

func NewBroker(logger *zap.Logger, router *bus.Router, source BarSource, startCash fixed.Point, options ...Option) *Broker {
	b := &Broker{
		logger:     logger,
		router:     router,
		source:     source,
		cash:       startCash,
		shares:     make(map[string]int64),
		commission: NoCommission{},
		fill:       DefaultFill{},
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Broker) CreateMarketOrder(action common.OrderAction, symbol string, quantity int64, fillOnClose bool) *common.Order {
	return common.NewMarketOrder(action, symbol, quantity, fillOnClose)
}

func (b *Broker) CreateLimitOrder(action common.OrderAction, symbol string, limitPrice fixed.Point, quantity int64) *common.Order {
	return common.NewLimitOrder(action, symbol, limitPrice, quantity)
}

func (b *Broker) CreateStopOrder(action common.OrderAction, symbol string, stopPrice fixed.Point, quantity int64) *common.Order {
	return common.NewStopOrder(action, symbol, stopPrice, quantity)
}

func (b *Broker) CreateStopLimitOrder(action common.OrderAction, symbol string, stopPrice, limitPrice fixed.Point, quantity int64) *common.Order {
	return common.NewStopLimitOrder(action, symbol, stopPrice, limitPrice, quantity)
}

// PlaceOrder registers an order for settlement. Only freshly accepted orders
// can be placed, and only once.
func (b *Broker) PlaceOrder(order *common.Order) error {
	if !order.IsAccepted() {
		return common.ErrOrderNotAccepted
	}
	if b.isTracked(order) {
		return ErrOrderAlreadyPlaced
	}

	order.SetDirty(false)
	b.activeOrders = append(b.activeOrders, order)
	b.logger.Debug("order placed", order.Fields()...)
	return nil
}

// UpdateOrder re-submits an order mutated through its setters. The explicit
// call keeps modification visible in the order flow instead of a silent
// side effect of the setters.
func (b *Broker) UpdateOrder(order *common.Order) error {
	if !order.IsAccepted() {
		return common.ErrOrderNotAccepted
	}
	if !b.isTracked(order) {
		return ErrOrderNotTracked
	}
	if !order.IsDirty() {
		return ErrOrderNotDirty
	}

	order.SetDirty(false)
	b.logger.Debug("order updated", order.Fields()...)
	return nil
}

// CancelOrder transitions an order to Canceled and untracks it. Canceling a
// filled order is an error.
func (b *Broker) CancelOrder(order *common.Order) error {
	if err := order.MarkCanceled(); err != nil {
		return err
	}

	b.untrack(order)
	b.logger.Debug("order canceled", order.Fields()...)
	b.postOrderUpdated(order)
	return nil
}

// OnBars settles the active orders against one snapshot. Orders placed while
// handlers react to this snapshot are only seen by the next pass, which is
// what keeps strategies from trading on prices they have already seen.
func (b *Broker) OnBars(ctx context.Context, bars common.Bars) {
	snapshot := make([]*common.Order, len(b.activeOrders))
	copy(snapshot, b.activeOrders)

	cashBefore := b.cash

	for _, order := range snapshot {
		if !order.IsAccepted() {
			continue
		}

		bar, ok := bars.Bar(order.Symbol())
		if !ok {
			bar, ok = b.source.LastBar(order.Symbol())
		}
		if !ok {
			continue
		}

		if price, filled := b.fill.FillPrice(order, bar, b.useAdjusted); filled {
			b.commitExecution(order, price, order.Quantity(), bars.TimeStamp())
		}

		// A non-GTC order still pending at session close is canceled.
		if order.IsAccepted() && !order.GoodUntilCanceled() && bar.SessionClose {
			if err := b.CancelOrder(order); err != nil {
				b.logger.Error("session close cancel failed", zap.Error(err))
			}
		}
	}

	b.sweep()

	if !b.cash.Eq(cashBefore) {
		b.post(bus.CashEvent, common.Cash{
			Source:      "broker",
			ExecutionId: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   bars.TimeStamp(),
			Value:       b.cash,
		})
	}
	b.post(bus.EquityEvent, common.Equity{
		Source:      "broker",
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   bars.TimeStamp(),
		Value:       b.EquityWithBars(bars),
	})
}

// commitExecution applies a fill to the ledger. When the resulting cash
// would go negative and negative cash is not allowed, the order silently
// stays accepted for a later bar.
func (b *Broker) commitExecution(order *common.Order, price fixed.Point, quantity int64, timeStamp time.Time) {
	commission := b.commission.Calculate(order, price, quantity)
	notional := price.MulInt64(quantity)

	resulting := b.cash
	if order.Action().IsBuy() {
		resulting = resulting.Sub(notional)
	} else {
		resulting = resulting.Add(notional)
	}
	resulting = resulting.Sub(commission)

	if resulting.IsNegative() && !b.allowNegativeCash {
		b.logger.Debug("insufficient cash, order stays accepted",
			zap.Stringer("resulting_cash", resulting))
		return
	}

	b.cash = resulting
	if order.Action().IsBuy() {
		b.shares[order.Symbol()] += quantity
	} else {
		b.shares[order.Symbol()] -= quantity
	}

	if err := order.Fill(common.ExecutionInfo{
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		TimeStamp:  timeStamp,
	}); err != nil {
		b.logger.Error("fill transition failed", zap.Error(err))
		return
	}

	b.logger.Debug("order filled", order.Fields()...)
	b.postOrderUpdated(order)
}

// EquityWithBars values the portfolio against a snapshot, falling back to
// the last known bar for symbols the snapshot misses.
func (b *Broker) EquityWithBars(bars common.Bars) fixed.Point {
	equity := b.cash
	for symbol, quantity := range b.shares {
		if quantity == 0 {
			continue
		}
		bar, ok := bars.Bar(symbol)
		if !ok {
			bar, ok = b.source.LastBar(symbol)
		}
		if !ok {
			continue
		}
		price := bar.Close
		if b.useAdjusted {
			price = bar.AdjClose
		}
		equity = equity.Add(price.MulInt64(quantity))
	}
	return equity
}

func (b *Broker) Equity() fixed.Point {
	return b.EquityWithBars(b.source.CurrentBars())
}

func (b *Broker) Cash() fixed.Point {
	return b.cash
}

func (b *Broker) Shares(symbol string) int64 {
	return b.shares[symbol]
}

func (b *Broker) Positions() map[string]int64 {
	positions := make(map[string]int64, len(b.shares))
	for symbol, quantity := range b.shares {
		if quantity != 0 {
			positions[symbol] = quantity
		}
	}
	return positions
}

func (b *Broker) ActiveOrders() []*common.Order {
	orders := make([]*common.Order, len(b.activeOrders))
	copy(orders, b.activeOrders)
	return orders
}

func (b *Broker) isTracked(order *common.Order) bool {
	for _, tracked := range b.activeOrders {
		if tracked == order {
			return true
		}
	}
	return false
}

func (b *Broker) untrack(order *common.Order) {
	for i, tracked := range b.activeOrders {
		if tracked == order {
			b.activeOrders = append(b.activeOrders[:i], b.activeOrders[i+1:]...)
			return
		}
	}
}

func (b *Broker) sweep() {
	remaining := b.activeOrders[:0]
	for _, order := range b.activeOrders {
		if order.IsAccepted() {
			remaining = append(remaining, order)
		}
	}
	b.activeOrders = remaining
}

func (b *Broker) postOrderUpdated(order *common.Order) {
	b.post(bus.OrderUpdatedEvent, order)
}

func (b *Broker) post(id bus.EventId, data interface{}) {
	if err := b.router.Post(id, data); err != nil {
		b.logger.Warn("event post failed", zap.Error(err), zap.Stringer("event_id", id))
	}
}
