package common

import (
	"testing"
	"time"

	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

var barTs = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func mustBar(t *testing.T, symbol string, ts time.Time, open, high, low, closePrice float64) Bar {
	t.Helper()
	bar, err := NewBar(symbol, ts,
		fixed.FromFloat64(open), fixed.FromFloat64(high),
		fixed.FromFloat64(low), fixed.FromFloat64(closePrice),
		fixed.FromInt(1000), fixed.FromFloat64(closePrice))
	if err != nil {
		t.Fatalf("NewBar failed: %v", err)
	}
	return bar
}

func TestNewBar_Validation(t *testing.T) {
	testCases := []struct {
		name                   string
		open, high, low, close float64
		wantErr                bool
	}{
		{"valid", 10, 12, 9, 11, false},
		{"valid flat", 10, 10, 10, 10, false},
		{"high below open", 13, 12, 9, 11, true},
		{"high below close", 10, 12, 9, 13, true},
		{"high below low", 10, 8, 9, 8, true},
		{"low above open", 10, 12, 11, 12, true},
		{"low above close", 12, 12, 11, 10, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBar("TEST", barTs,
				fixed.FromFloat64(tc.open), fixed.FromFloat64(tc.high),
				fixed.FromFloat64(tc.low), fixed.FromFloat64(tc.close),
				fixed.FromInt(100), fixed.FromFloat64(tc.close))
			if tc.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestNewBar_DefaultsSessionFields(t *testing.T) {
	bar := mustBar(t, "TEST", barTs, 10, 12, 9, 11)

	if bar.SessionClose {
		t.Error("Expected SessionClose=false")
	}
	if bar.BarsUntilSessionClose != -1 {
		t.Errorf("Expected BarsUntilSessionClose=-1, got %d", bar.BarsUntilSessionClose)
	}
}

func TestBar_AdjustedPrices(t *testing.T) {
	bar, err := NewBar("TEST", barTs,
		fixed.FromInt(10), fixed.FromInt(12), fixed.FromInt(8), fixed.FromInt(10),
		fixed.FromInt(100), fixed.FromInt(5))
	if err != nil {
		t.Fatalf("NewBar failed: %v", err)
	}

	if !bar.AdjOpen().Eq(fixed.FromInt(5)) {
		t.Errorf("Expected AdjOpen=5, got %s", bar.AdjOpen())
	}
	if !bar.AdjHigh().Eq(fixed.FromInt(6)) {
		t.Errorf("Expected AdjHigh=6, got %s", bar.AdjHigh())
	}
	if !bar.AdjLow().Eq(fixed.FromInt(4)) {
		t.Errorf("Expected AdjLow=4, got %s", bar.AdjLow())
	}
}

func TestNewBars_Empty(t *testing.T) {
	if _, err := NewBars(nil); err == nil {
		t.Error("Expected error for empty bars")
	}
	if _, err := NewBars(map[string]Bar{}); err == nil {
		t.Error("Expected error for empty bars")
	}
}

func TestNewBars_TimestampMismatch(t *testing.T) {
	a := mustBar(t, "AAA", barTs, 10, 12, 9, 11)
	b := mustBar(t, "BBB", barTs.Add(time.Minute), 20, 22, 19, 21)

	_, err := NewBars(map[string]Bar{"AAA": a, "BBB": b})
	if err == nil {
		t.Error("Expected error for mismatched timestamps")
	}
}

func TestNewBars_Snapshot(t *testing.T) {
	a := mustBar(t, "AAA", barTs, 10, 12, 9, 11)
	b := mustBar(t, "BBB", barTs, 20, 22, 19, 21)

	source := map[string]Bar{"AAA": a, "BBB": b}
	bars, err := NewBars(source)
	if err != nil {
		t.Fatalf("NewBars failed: %v", err)
	}

	// Mutating the source map must not affect the snapshot.
	delete(source, "AAA")

	if got, ok := bars.Bar("AAA"); !ok || !got.Open.Eq(a.Open) {
		t.Error("Snapshot lost AAA after source mutation")
	}
	if !bars.TimeStamp().Equal(barTs) {
		t.Errorf("Expected timestamp %s, got %s", barTs, bars.TimeStamp())
	}

	symbols := bars.Symbols()
	if len(symbols) != 2 || symbols[0] != "AAA" || symbols[1] != "BBB" {
		t.Errorf("Expected sorted symbols [AAA BBB], got %v", symbols)
	}

	if _, ok := bars.Bar("CCC"); ok {
		t.Error("Expected missing symbol lookup to fail")
	}
}
