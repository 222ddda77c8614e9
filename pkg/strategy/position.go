package strategy

import (
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

type Side int

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// Position pairs an entry order with at most one pending exit order. It is
// created by the Runner's Enter operations and becomes inert once the exit
// fills or the entry is canceled.
type Position struct {
	side    Side
	entry   *common.Order
	exit    *common.Order
	tracker *Tracker

	exitOnSessionClose bool
}

func newPosition(side Side, entry *common.Order) *Position {
	return &Position{
		side:    side,
		entry:   entry,
		tracker: NewTracker(),
	}
}

func (p *Position) Side() Side                   { return p.side }
func (p *Position) Symbol() string               { return p.entry.Symbol() }
func (p *Position) EntryOrder() *common.Order    { return p.entry }
func (p *Position) ExitOrder() *common.Order     { return p.exit }
func (p *Position) EntryFilled() bool            { return p.entry.IsFilled() }
func (p *Position) ExitFilled() bool             { return p.exit != nil && p.exit.IsFilled() }
func (p *Position) Shares() int64                { return p.tracker.Shares() }
func (p *Position) ExitOnSessionClose() bool     { return p.exitOnSessionClose }
func (p *Position) SetExitOnSessionClose(v bool) { p.exitOnSessionClose = v }

// Active reports whether the position still needs settlement work: the entry
// is pending or filled and no exit has filled yet.
func (p *Position) Active() bool {
	if p.entry.IsCanceled() {
		return false
	}
	return !p.ExitFilled()
}

func (p *Position) NetProfit(price fixed.Point, includeCommissions bool) fixed.Point {
	return p.tracker.NetProfit(price, includeCommissions)
}

func (p *Position) Return(price fixed.Point, includeCommissions bool) fixed.Point {
	return p.tracker.Return(price, includeCommissions)
}

// entryAction maps the side to the opening order action.
func entryAction(side Side) common.OrderAction {
	if side == SideShort {
		return common.OrderActionSellShort
	}
	return common.OrderActionBuy
}

// exitAction maps the side to the closing order action.
func exitAction(side Side) common.OrderAction {
	if side == SideShort {
		return common.OrderActionBuyToCover
	}
	return common.OrderActionSell
}

// recordFill feeds an execution into the tracker. Entry fills trade in the
// position's direction, exit fills against it.
func (p *Position) recordFill(order *common.Order) {
	info, ok := order.ExecutionInfo()
	if !ok {
		return
	}

	buys := p.side == SideLong
	if order == p.exit {
		buys = !buys
	}
	if buys {
		p.tracker.Buy(info.Quantity, info.Price, info.Commission)
	} else {
		p.tracker.Sell(info.Quantity, info.Price, info.Commission)
	}
}
