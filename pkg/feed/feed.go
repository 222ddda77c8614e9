package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/bus"
	"github.com/jan-sykora/meridian/pkg/common"
)

var (
	ErrEof            = errors.New("end of feed")
	ErrBarsOutOfOrder = errors.New("bar timestamps are out of order")
	ErrAlreadyStarted = errors.New("feed is already started")
	ErrNotStarted     = errors.New("feed is not started")
)

// Feed replays in-memory per-symbol bar sequences as a single time-ordered
// stream. Each step merges every symbol whose next unconsumed bar carries the
// globally oldest timestamp into one Bars snapshot. The stream is finite and
// not restartable.
type Feed struct {
	logger *zap.Logger
	router *bus.Router

	barsBySymbol map[string][]common.Bar
	cursors      map[string]int
	lastBars     map[string]common.Bar

	started     bool
	currentBars common.Bars
}

func NewFeed(logger *zap.Logger, router *bus.Router) *Feed {
	return &Feed{
		logger:       logger,
		router:       router,
		barsBySymbol: make(map[string][]common.Bar),
		cursors:      make(map[string]int),
		lastBars:     make(map[string]common.Bar),
	}
}

// AddBars appends bars for a symbol. May be called several times per symbol,
// in any order, but only before Start.
func (f *Feed) AddBars(symbol string, bars []common.Bar) error {
	if f.started {
		return ErrAlreadyStarted
	}
	if symbol == "" {
		return errors.New("symbol must not be empty")
	}

	for _, bar := range bars {
		bar.Symbol = symbol
		f.barsBySymbol[symbol] = append(f.barsBySymbol[symbol], bar)
	}
	return nil
}

// Start sorts each symbol's sequence and computes the session close
// annotations. A bar closes a session when it has no successor or the
// successor falls on another calendar date. The bar preceding a
// session-closing bar of the same session is flagged with
// BarsUntilSessionClose set to one, and the bar preceding the final bar is
// always flagged, matching the one-bar warning the exit logic relies on.
func (f *Feed) Start() error {
	if f.started {
		return ErrAlreadyStarted
	}

	for symbol, bars := range f.barsBySymbol {
		sort.SliceStable(bars, func(i, j int) bool {
			return bars[i].TimeStamp.Before(bars[j].TimeStamp)
		})

		for i := range bars {
			if i == len(bars)-1 || !sameSession(bars[i], bars[i+1]) {
				bars[i].SessionClose = true
			}
		}
		for i := 0; i < len(bars)-1; i++ {
			if bars[i+1].SessionClose && sameSession(bars[i], bars[i+1]) {
				bars[i].BarsUntilSessionClose = 1
			}
		}
		if len(bars) > 1 {
			bars[len(bars)-2].BarsUntilSessionClose = 1
		}

		f.barsBySymbol[symbol] = bars
		f.cursors[symbol] = 0

		f.logger.Debug("symbol loaded",
			zap.String("symbol", symbol),
			zap.Int("bar_count", len(bars)))
	}

	f.started = true
	return nil
}

// Next produces the following Bars snapshot, advancing only the cursors of
// the symbols it contains. Returns ErrEof once every sequence is consumed.
func (f *Feed) Next() (common.Bars, error) {
	if !f.started {
		return common.Bars{}, ErrNotStarted
	}

	var oldest time.Time
	found := false
	for symbol, cursor := range f.cursors {
		if cursor >= len(f.barsBySymbol[symbol]) {
			continue
		}
		ts := f.barsBySymbol[symbol][cursor].TimeStamp
		if !found || ts.Before(oldest) {
			oldest = ts
			found = true
		}
	}
	if !found {
		return common.Bars{}, ErrEof
	}

	merged := make(map[string]common.Bar)
	for symbol, cursor := range f.cursors {
		if cursor >= len(f.barsBySymbol[symbol]) {
			continue
		}
		bar := f.barsBySymbol[symbol][cursor]
		if bar.TimeStamp.Equal(oldest) {
			merged[symbol] = bar
			f.cursors[symbol] = cursor + 1
		}
	}

	bars, err := common.NewBars(merged)
	if err != nil {
		return common.Bars{}, fmt.Errorf("merging bars at %s: %w", oldest, err)
	}

	if !f.currentBars.Empty() && !bars.TimeStamp().After(f.currentBars.TimeStamp()) {
		return common.Bars{}, fmt.Errorf("%w: %s does not advance past %s",
			ErrBarsOutOfOrder, bars.TimeStamp(), f.currentBars.TimeStamp())
	}

	f.currentBars = bars
	for symbol, bar := range merged {
		f.lastBars[symbol] = bar
	}
	return bars, nil
}

// Dispatch advances the feed by one step and posts the snapshot on the
// router. Shaped to serve as the router's ExecLoop step callback.
func (f *Feed) Dispatch(_ context.Context) error {
	bars, err := f.Next()
	if err != nil {
		return err
	}
	return f.router.Post(bus.BarsEvent, bars)
}

// CurrentBars returns the most recent snapshot, empty before the first Next.
func (f *Feed) CurrentBars() common.Bars {
	return f.currentBars
}

// LastBar returns the most recent bar seen for a symbol, which may be older
// than the current snapshot when the symbol skipped a timestamp.
func (f *Feed) LastBar(symbol string) (common.Bar, bool) {
	bar, ok := f.lastBars[symbol]
	return bar, ok
}

func (f *Feed) Exhausted() bool {
	for symbol, cursor := range f.cursors {
		if cursor < len(f.barsBySymbol[symbol]) {
			return false
		}
	}
	return true
}

func (f *Feed) Symbols() []string {
	symbols := make([]string, 0, len(f.barsBySymbol))
	for symbol := range f.barsBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func sameSession(a, b common.Bar) bool {
	ay, am, ad := a.TimeStamp.Date()
	by, bm, bd := b.TimeStamp.Date()
	return ay == by && am == bm && ad == bd
}
