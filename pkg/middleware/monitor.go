package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
)

type MonitorFlags uint8

const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorBars
	MonitorOrders
	MonitorCash
	MonitorEquity
	MonitorBarsProcessed
)

// Monitor logs the events flowing through the wrapped handlers, gated by
// flags so the hot path stays quiet by default.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithBars(handler bus.BarsEventHandler) bus.BarsEventHandler {
	return func(ctx context.Context, bars common.Bars) {
		if m.enabled(MonitorBars) {
			m.logger.Info("event",
				zap.Time("ts", bars.TimeStamp()),
				zap.Strings("symbols", bars.Symbols()))
		}
		handler(ctx, bars)
	}
}

func (m *Monitor) WithOrderUpdated(handler bus.OrderUpdatedEventHandler) bus.OrderUpdatedEventHandler {
	return func(ctx context.Context, order *common.Order) {
		if m.enabled(MonitorOrders) {
			m.logger.Info("event", order.Fields()...)
		}
		handler(ctx, order)
	}
}

func (m *Monitor) WithCash(handler bus.CashEventHandler) bus.CashEventHandler {
	return func(ctx context.Context, cash common.Cash) {
		if m.enabled(MonitorCash) {
			m.logger.Info("event",
				zap.Time("ts", cash.TimeStamp),
				zap.Stringer("cash", cash.Value))
		}
		handler(ctx, cash)
	}
}

func (m *Monitor) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, equity common.Equity) {
		if m.enabled(MonitorEquity) {
			m.logger.Info("event",
				zap.Time("ts", equity.TimeStamp),
				zap.Stringer("equity", equity.Value))
		}
		handler(ctx, equity)
	}
}

func (m *Monitor) WithBarsProcessed(handler bus.BarsProcessedEventHandler) bus.BarsProcessedEventHandler {
	return func(ctx context.Context, bars common.Bars) {
		if m.enabled(MonitorBarsProcessed) {
			m.logger.Info("event",
				zap.Time("ts", bars.TimeStamp()),
				zap.Strings("symbols", bars.Symbols()))
		}
		handler(ctx, bars)
	}
}
