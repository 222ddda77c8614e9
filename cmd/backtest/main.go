package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/internal/dbg"

	smacross "github.com/jan-sykora/meridian/examples/strategy"
	"github.com/jan-sykora/meridian/pkg/broker"
	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/data/mapper"
	"github.com/jan-sykora/meridian/pkg/feed"
	"github.com/jan-sykora/meridian/pkg/middleware"
	"github.com/jan-sykora/meridian/pkg/strategy"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

const (
	BarBinPath = "market_data/spy_daily.bin"

	Symbol     = "SPY"
	Quantity   = 10
	FastWindow = 10
	SlowWindow = 30
)

var (
	startCash  = fixed.FromInt(100000)
	commission = broker.TradePercentage{Percentage: fixed.FromFloat64(0.001)}
)

func main() {
	logger := dbg.NewDevLogger()
	defer func() { _ = logger.Sync() }()

	router := bus.NewRouter(logger, 1000)

	mp := mapper.NewReader[mapper.BinaryBar](BarBinPath)
	if err := mp.Open(); err != nil {
		logger.Fatal("unable to open mapper", zap.Error(err))
	}
	defer mp.Close()

	barFeed := feed.NewFeed(logger, router)

	var history []common.Bar
	if err := mp.Scan(0, func(_ int64, record *mapper.BinaryBar) error {
		bar, err := record.ToBar(Symbol)
		if err != nil {
			return err
		}
		history = append(history, bar)
		return nil
	}); err != nil {
		logger.Fatal("unable to read bars", zap.Error(err))
	}
	if err := barFeed.AddBars(Symbol, history); err != nil {
		logger.Fatal("unable to load feed", zap.Error(err))
	}

	b := broker.NewBroker(logger, router, barFeed, startCash,
		broker.WithCommission(commission))

	advisor := smacross.NewSmaCross(logger, Symbol, Quantity, FastWindow, SlowWindow)
	runner := strategy.NewRunner(logger, router, barFeed, b, advisor)
	advisor.Attach(runner)

	monitor := middleware.NewMonitor(logger, middleware.MonitorOrders)
	performance := middleware.NewPerformance(logger)

	// NewRunner installed the bars and order handlers, wrap them in place.
	router.OnBars = middleware.Chain(monitor.WithBars, performance.WithBars)(router.OnBars)
	router.OnOrderUpdated = middleware.Chain(monitor.WithOrderUpdated, performance.WithOrderUpdated)(router.OnOrderUpdated)
	router.OnCash = middleware.Chain(monitor.WithCash, performance.WithCash)(func(context.Context, common.Cash) {})
	router.OnEquity = middleware.Chain(monitor.WithEquity, performance.WithEquity)(func(context.Context, common.Equity) {})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	defer performance.PrintStatistics()
	defer router.PrintStatistics()

	if err := runner.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Fatal("unexpected error during replay", zap.Error(err))
		}
		return
	}

	logger.Info("backtest finished",
		zap.Stringer("equity", runner.Result()),
		zap.Stringer("cash", b.Cash()),
		zap.Any("positions", b.Positions()))
}
