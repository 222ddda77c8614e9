package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
)

// Performance accumulates per-handler latency for the wrapped handlers.
type Performance struct {
	logger *zap.Logger

	barsCount          uint64
	orderCount         uint64
	cashCount          uint64
	equityCount        uint64
	barsProcessedCount uint64

	totalBarsDur          time.Duration
	totalOrderDur         time.Duration
	totalCashDur          time.Duration
	totalEquityDur        time.Duration
	totalBarsProcessedDur time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithBars(handler bus.BarsEventHandler) bus.BarsEventHandler {
	return func(ctx context.Context, bars common.Bars) {
		startTime := time.Now()
		handler(ctx, bars)
		p.totalBarsDur += time.Since(startTime)
		p.barsCount++
	}
}

func (p *Performance) WithOrderUpdated(handler bus.OrderUpdatedEventHandler) bus.OrderUpdatedEventHandler {
	return func(ctx context.Context, order *common.Order) {
		startTime := time.Now()
		handler(ctx, order)
		p.totalOrderDur += time.Since(startTime)
		p.orderCount++
	}
}

func (p *Performance) WithCash(handler bus.CashEventHandler) bus.CashEventHandler {
	return func(ctx context.Context, cash common.Cash) {
		startTime := time.Now()
		handler(ctx, cash)
		p.totalCashDur += time.Since(startTime)
		p.cashCount++
	}
}

func (p *Performance) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, equity common.Equity) {
		startTime := time.Now()
		handler(ctx, equity)
		p.totalEquityDur += time.Since(startTime)
		p.equityCount++
	}
}

func (p *Performance) WithBarsProcessed(handler bus.BarsProcessedEventHandler) bus.BarsProcessedEventHandler {
	return func(ctx context.Context, bars common.Bars) {
		startTime := time.Now()
		handler(ctx, bars)
		p.totalBarsProcessedDur += time.Since(startTime)
		p.barsProcessedCount++
	}
}

func (p *Performance) PrintStatistics() {
	var fields []zap.Field

	appendStats := func(name string, count uint64, total time.Duration) {
		if count == 0 {
			return
		}
		fields = append(fields,
			zap.Duration(name+"_avg_duration", total/time.Duration(count)),
			zap.Duration(name+"_total_duration", total))
	}

	appendStats("bars", p.barsCount, p.totalBarsDur)
	appendStats("order", p.orderCount, p.totalOrderDur)
	appendStats("cash", p.cashCount, p.totalCashDur)
	appendStats("equity", p.equityCount, p.totalEquityDur)
	appendStats("bars_processed", p.barsProcessedCount, p.totalBarsProcessedDur)

	p.logger.Info("performance statistics", fields...)
}
