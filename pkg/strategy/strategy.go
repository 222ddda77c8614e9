package strategy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/broker"
	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/feed"
	"github.com/jan-sykora/meridian/pkg/utility"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

var ErrEmptyFeed = errors.New("cannot backtest an empty feed")

// Strategy receives the replay callbacks. OnBars carries the trading logic;
// the remaining hooks default to no-ops through BaseStrategy.
type Strategy interface {
	OnBars(ctx context.Context, bars common.Bars)
	OnStart(ctx context.Context)
	OnFinish(ctx context.Context, bars common.Bars)
	OnEnterOk(ctx context.Context, position *Position)
	OnEnterCanceled(ctx context.Context, position *Position)
	OnExitOk(ctx context.Context, position *Position)
	OnExitCanceled(ctx context.Context, position *Position)
	OnOrderUpdated(ctx context.Context, order *common.Order)
}

// BaseStrategy provides no-op implementations for every hook except OnBars,
// which the embedding strategy must supply.
type BaseStrategy struct{}

func (BaseStrategy) OnStart(context.Context)                       {}
func (BaseStrategy) OnFinish(context.Context, common.Bars)         {}
func (BaseStrategy) OnEnterOk(context.Context, *Position)          {}
func (BaseStrategy) OnEnterCanceled(context.Context, *Position)    {}
func (BaseStrategy) OnExitOk(context.Context, *Position)           {}
func (BaseStrategy) OnExitCanceled(context.Context, *Position)     {}
func (BaseStrategy) OnOrderUpdated(context.Context, *common.Order) {}

// Runner drives one backtest. It owns the router, feed and broker wiring for
// its lifetime and keeps the settlement-before-strategy ordering by
// constructing the merged bars handler itself: the broker's settlement
// always runs before the strategy sees the same snapshot.
type Runner struct {
	logger   *zap.Logger
	router   *bus.Router
	feed     *feed.Feed
	broker   *broker.Broker
	strategy Strategy

	positions  map[*Position]struct{}
	orderIndex map[utility.TraceID]*Position
	lastBars   common.Bars
}

func NewRunner(logger *zap.Logger, router *bus.Router, f *feed.Feed, b *broker.Broker, s Strategy) *Runner {
	r := &Runner{
		logger:     logger,
		router:     router,
		feed:       f,
		broker:     b,
		strategy:   s,
		positions:  make(map[*Position]struct{}),
		orderIndex: make(map[utility.TraceID]*Position),
	}

	router.OnBars = bus.MergeHandlers[common.Bars](b.OnBars, r.onBars)
	router.OnOrderUpdated = r.onOrderUpdated
	return r
}

func (r *Runner) Broker() *broker.Broker {
	return r.broker
}

func (r *Runner) Feed() *feed.Feed {
	return r.feed
}

// Run replays the whole feed. It returns ErrEmptyFeed when the feed never
// produced a single snapshot, the context error on cancellation, or nil
// after a completed replay.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.feed.Start(); err != nil {
		return err
	}

	r.strategy.OnStart(ctx)

	err := <-r.router.ExecLoop(ctx, r.feed.Dispatch)
	if !errors.Is(err, feed.ErrEof) {
		return err
	}
	if r.lastBars.Empty() {
		return ErrEmptyFeed
	}

	r.strategy.OnFinish(ctx, r.lastBars)
	return nil
}

// Result is the portfolio value after the replay.
func (r *Runner) Result() fixed.Point {
	return r.broker.EquityWithBars(r.lastBars)
}

func (r *Runner) EnterLong(symbol string, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateMarketOrder(entryAction(SideLong), symbol, quantity, false)
	return r.enter(SideLong, entry, gtc)
}

func (r *Runner) EnterShort(symbol string, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateMarketOrder(entryAction(SideShort), symbol, quantity, false)
	return r.enter(SideShort, entry, gtc)
}

func (r *Runner) EnterLongLimit(symbol string, limitPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateLimitOrder(entryAction(SideLong), symbol, limitPrice, quantity)
	return r.enter(SideLong, entry, gtc)
}

func (r *Runner) EnterShortLimit(symbol string, limitPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateLimitOrder(entryAction(SideShort), symbol, limitPrice, quantity)
	return r.enter(SideShort, entry, gtc)
}

func (r *Runner) EnterLongStop(symbol string, stopPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateStopOrder(entryAction(SideLong), symbol, stopPrice, quantity)
	return r.enter(SideLong, entry, gtc)
}

func (r *Runner) EnterShortStop(symbol string, stopPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateStopOrder(entryAction(SideShort), symbol, stopPrice, quantity)
	return r.enter(SideShort, entry, gtc)
}

func (r *Runner) EnterLongStopLimit(symbol string, stopPrice, limitPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateStopLimitOrder(entryAction(SideLong), symbol, stopPrice, limitPrice, quantity)
	return r.enter(SideLong, entry, gtc)
}

func (r *Runner) EnterShortStopLimit(symbol string, stopPrice, limitPrice fixed.Point, quantity int64, gtc bool) (*Position, error) {
	entry := r.broker.CreateStopLimitOrder(entryAction(SideShort), symbol, stopPrice, limitPrice, quantity)
	return r.enter(SideShort, entry, gtc)
}

func (r *Runner) enter(side Side, entry *common.Order, gtc bool) (*Position, error) {
	if gtc {
		entry.SetGoodUntilCanceled(true)
	}

	if err := r.broker.PlaceOrder(entry); err != nil {
		return nil, err
	}

	position := newPosition(side, entry)
	r.positions[position] = struct{}{}
	r.orderIndex[entry.Id()] = position

	r.logger.Debug("position opened",
		zap.Stringer("side", side),
		zap.String("symbol", entry.Symbol()),
		zap.Int64("quantity", entry.Quantity()))
	return position, nil
}

// ExitPosition closes a position. With an unfilled entry it cancels the
// entry instead of creating an exit order. A pending exit order is replaced.
// Zero prices select a market exit, a single price a limit or stop exit,
// both a stop limit exit. The optional gtc argument overrides the exit
// order's good until canceled flag, which otherwise follows the entry.
func (r *Runner) ExitPosition(position *Position, limitPrice, stopPrice fixed.Point, gtc ...bool) error {
	if position.ExitFilled() {
		return nil
	}

	if !position.EntryFilled() {
		if position.entry.IsAccepted() {
			return r.broker.CancelOrder(position.entry)
		}
		return nil
	}

	if position.exit != nil && position.exit.IsAccepted() {
		stale := position.exit
		position.exit = nil
		delete(r.orderIndex, stale.Id())
		if err := r.broker.CancelOrder(stale); err != nil {
			return err
		}
	}

	goodUntilCanceled := position.entry.GoodUntilCanceled()
	if len(gtc) > 0 {
		goodUntilCanceled = gtc[0]
	}
	return r.placeExit(position, limitPrice, stopPrice, goodUntilCanceled, false)
}

func (r *Runner) placeExit(position *Position, limitPrice, stopPrice fixed.Point, gtc, onClose bool) error {
	action := exitAction(position.side)
	symbol := position.Symbol()
	quantity := position.entry.Quantity()

	var exit *common.Order
	switch {
	case limitPrice.IsZero() && stopPrice.IsZero():
		exit = r.broker.CreateMarketOrder(action, symbol, quantity, onClose)
	case stopPrice.IsZero():
		exit = r.broker.CreateLimitOrder(action, symbol, limitPrice, quantity)
	case limitPrice.IsZero():
		exit = r.broker.CreateStopOrder(action, symbol, stopPrice, quantity)
	default:
		exit = r.broker.CreateStopLimitOrder(action, symbol, stopPrice, limitPrice, quantity)
	}

	if gtc {
		exit.SetGoodUntilCanceled(true)
	}

	if err := r.broker.PlaceOrder(exit); err != nil {
		return err
	}

	position.exit = exit
	r.orderIndex[exit.Id()] = position
	return nil
}

// onBars runs after the broker settled the snapshot: strategy logic first,
// then the automatic session close exits, then the analyzers' notification.
func (r *Runner) onBars(ctx context.Context, bars common.Bars) {
	r.lastBars = bars

	r.strategy.OnBars(ctx, bars)
	r.checkExitOnSessionClose(bars)

	if err := r.router.Post(bus.BarsProcessedEvent, bars); err != nil {
		r.logger.Warn("bars processed post failed", zap.Error(err))
	}
}

// checkExitOnSessionClose submits a good-until-canceled market-on-close exit
// for flagged positions one bar ahead of session close. The GTC flag keeps
// the exit itself from being canceled on the closing bar. An unfilled entry
// is canceled instead.
func (r *Runner) checkExitOnSessionClose(bars common.Bars) {
	for position := range r.positions {
		if !position.exitOnSessionClose || position.exit != nil {
			continue
		}
		bar, ok := bars.Bar(position.Symbol())
		if !ok || bar.BarsUntilSessionClose != 1 {
			continue
		}

		var err error
		if position.EntryFilled() {
			err = r.placeExit(position, fixed.Zero, fixed.Zero, true, true)
		} else if position.entry.IsAccepted() {
			err = r.broker.CancelOrder(position.entry)
		}
		if err != nil {
			r.logger.Error("session close exit failed",
				zap.Error(err),
				zap.String("symbol", position.Symbol()))
		}
	}
}

// onOrderUpdated routes order transitions back to the position lifecycle
// hooks. Orders the runner does not know belong to the strategy's own
// bookkeeping.
func (r *Runner) onOrderUpdated(ctx context.Context, order *common.Order) {
	position, ok := r.orderIndex[order.Id()]
	if !ok {
		r.strategy.OnOrderUpdated(ctx, order)
		return
	}

	switch {
	case position.entry.Id() == order.Id():
		if order.IsFilled() {
			position.recordFill(order)
			r.strategy.OnEnterOk(ctx, position)
		} else if order.IsCanceled() {
			r.unregister(position)
			r.strategy.OnEnterCanceled(ctx, position)
		}
	case position.exit != nil && position.exit.Id() == order.Id():
		if order.IsFilled() {
			position.recordFill(order)
			r.unregister(position)
			r.strategy.OnExitOk(ctx, position)
		} else if order.IsCanceled() {
			position.exit = nil
			delete(r.orderIndex, order.Id())
			r.strategy.OnExitCanceled(ctx, position)
		}
	default:
		// A replaced exit order; nothing to route anymore.
		delete(r.orderIndex, order.Id())
	}
}

func (r *Runner) unregister(position *Position) {
	delete(r.positions, position)
	delete(r.orderIndex, position.entry.Id())
	if position.exit != nil {
		delete(r.orderIndex, position.exit.Id())
	}
}
