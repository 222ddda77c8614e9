package common

import (
	"fmt"
	"sort"
	"time"

	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// Bar holds a symbol's OHLCV prices for a single period. SessionClose and
// BarsUntilSessionClose are annotations owned by the feed, set once before
// the bar is handed out.
type Bar struct {
	Symbol    string      `json:"symbol"`
	TimeStamp time.Time   `json:"ts"`
	Open      fixed.Point `json:"open"`
	High      fixed.Point `json:"high"`
	Low       fixed.Point `json:"low"`
	Close     fixed.Point `json:"close"`
	Volume    fixed.Point `json:"volume"`
	AdjClose  fixed.Point `json:"adj_close"`

	SessionClose          bool `json:"session_close,omitempty"`
	BarsUntilSessionClose int  `json:"bars_until_session_close,omitempty"`
}

// NewBar validates the cross-field price invariants. The high must be the
// highest and the low the lowest of all four prices.
func NewBar(symbol string, timeStamp time.Time, open, high, low, closePrice, volume, adjClose fixed.Point) (Bar, error) {
	if high.Lt(open) || high.Lt(low) || high.Lt(closePrice) {
		return Bar{}, fmt.Errorf("invalid bar for %s at %s: high %s is not the highest price",
			symbol, timeStamp, high)
	}
	if low.Gt(open) || low.Gt(high) || low.Gt(closePrice) {
		return Bar{}, fmt.Errorf("invalid bar for %s at %s: low %s is not the lowest price",
			symbol, timeStamp, low)
	}

	return Bar{
		Symbol:                symbol,
		TimeStamp:             timeStamp,
		Open:                  open,
		High:                  high,
		Low:                   low,
		Close:                 closePrice,
		Volume:                volume,
		AdjClose:              adjClose,
		BarsUntilSessionClose: -1,
	}, nil
}

// AdjOpen returns the opening price scaled by the close adjustment factor.
func (b Bar) AdjOpen() fixed.Point {
	return b.AdjClose.Mul(b.Open).Div(b.Close)
}

// AdjHigh returns the highest price scaled by the close adjustment factor.
func (b Bar) AdjHigh() fixed.Point {
	return b.AdjClose.Mul(b.High).Div(b.Close)
}

// AdjLow returns the lowest price scaled by the close adjustment factor.
func (b Bar) AdjLow() fixed.Point {
	return b.AdjClose.Mul(b.Low).Div(b.Close)
}

// Bars is an immutable snapshot of one Bar per symbol, all sharing a single
// timestamp. The zero value is an empty snapshot.
type Bars struct {
	barsBySymbol map[string]Bar
	timeStamp    time.Time
}

// NewBars builds a snapshot from a symbol to Bar mapping. An empty mapping
// or bars with mismatched timestamps are construction errors.
func NewBars(barsBySymbol map[string]Bar) (Bars, error) {
	if len(barsBySymbol) == 0 {
		return Bars{}, fmt.Errorf("no bars supplied")
	}

	var timeStamp time.Time
	var firstSymbol string
	for symbol, bar := range barsBySymbol {
		if timeStamp.IsZero() {
			timeStamp = bar.TimeStamp
			firstSymbol = symbol
		} else if !bar.TimeStamp.Equal(timeStamp) {
			return Bars{}, fmt.Errorf("bar timestamps are not in sync: %s %s != %s %s",
				symbol, bar.TimeStamp, firstSymbol, timeStamp)
		}
	}

	copied := make(map[string]Bar, len(barsBySymbol))
	for symbol, bar := range barsBySymbol {
		copied[symbol] = bar
	}

	return Bars{barsBySymbol: copied, timeStamp: timeStamp}, nil
}

// Bar returns the bar for a symbol, if present in this snapshot.
func (b Bars) Bar(symbol string) (Bar, bool) {
	bar, ok := b.barsBySymbol[symbol]
	return bar, ok
}

// Symbols returns the symbols present in this snapshot, sorted.
func (b Bars) Symbols() []string {
	symbols := make([]string, 0, len(b.barsBySymbol))
	for symbol := range b.barsBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (b Bars) TimeStamp() time.Time {
	return b.timeStamp
}

func (b Bars) Empty() bool {
	return len(b.barsBySymbol) == 0
}
