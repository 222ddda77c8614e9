package strategy

import (
	"testing"

	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

func TestTracker_FlatRoundTrip(t *testing.T) {
	tr := NewTracker()

	tr.Buy(1, fixed.FromInt(10), fixed.Zero)
	tr.Sell(1, fixed.FromInt(10), fixed.Zero)

	for _, price := range []fixed.Point{fixed.FromInt(5), fixed.FromInt(10), fixed.FromInt(100)} {
		if !tr.NetProfit(price, true).IsZero() {
			t.Errorf("Expected zero net profit at %s, got %s", price, tr.NetProfit(price, true))
		}
		if !tr.Return(price, true).IsZero() {
			t.Errorf("Expected zero return at %s, got %s", price, tr.Return(price, true))
		}
	}
}

func TestTracker_LongProfit(t *testing.T) {
	tr := NewTracker()

	tr.Buy(10, fixed.FromInt(10), fixed.FromInt(1))
	tr.Sell(10, fixed.FromInt(12), fixed.FromInt(1))

	if !tr.NetProfit(fixed.Zero, false).Eq(fixed.FromInt(20)) {
		t.Errorf("Expected gross profit 20, got %s", tr.NetProfit(fixed.Zero, false))
	}
	if !tr.NetProfit(fixed.Zero, true).Eq(fixed.FromInt(18)) {
		t.Errorf("Expected net profit 18, got %s", tr.NetProfit(fixed.Zero, true))
	}
	if !tr.Cost().Eq(fixed.FromInt(100)) {
		t.Errorf("Expected cost 100, got %s", tr.Cost())
	}
	if !tr.Return(fixed.Zero, false).Eq(fixed.FromFloat64(0.2)) {
		t.Errorf("Expected return 0.2, got %s", tr.Return(fixed.Zero, false))
	}
}

func TestTracker_ShortProfit(t *testing.T) {
	tr := NewTracker()

	tr.Sell(10, fixed.FromInt(12), fixed.Zero)
	tr.Buy(10, fixed.FromInt(10), fixed.Zero)

	if !tr.NetProfit(fixed.Zero, true).Eq(fixed.FromInt(20)) {
		t.Errorf("Expected profit 20, got %s", tr.NetProfit(fixed.Zero, true))
	}
	if !tr.Cost().Eq(fixed.FromInt(120)) {
		t.Errorf("Expected cost 120, got %s", tr.Cost())
	}
}

func TestTracker_CostTransitions(t *testing.T) {
	t.Run("same direction increase", func(t *testing.T) {
		tr := NewTracker()
		tr.Buy(10, fixed.FromInt(10), fixed.Zero)
		tr.Buy(5, fixed.FromInt(12), fixed.Zero)

		if !tr.Cost().Eq(fixed.FromInt(160)) {
			t.Errorf("Expected cost 160, got %s", tr.Cost())
		}
	})

	t.Run("partial reduction adds nothing", func(t *testing.T) {
		tr := NewTracker()
		tr.Buy(10, fixed.FromInt(10), fixed.Zero)
		tr.Sell(4, fixed.FromInt(12), fixed.Zero)

		if !tr.Cost().Eq(fixed.FromInt(100)) {
			t.Errorf("Expected cost 100, got %s", tr.Cost())
		}
		if tr.Shares() != 6 {
			t.Errorf("Expected 6 shares, got %d", tr.Shares())
		}
	})

	t.Run("flip adds flipped notional", func(t *testing.T) {
		tr := NewTracker()
		tr.Buy(10, fixed.FromInt(10), fixed.Zero)
		tr.Sell(15, fixed.FromInt(12), fixed.Zero)

		// 100 from the long leg plus 5 flipped shares at 12.
		if !tr.Cost().Eq(fixed.FromInt(160)) {
			t.Errorf("Expected cost 160, got %s", tr.Cost())
		}
		if tr.Shares() != -5 {
			t.Errorf("Expected -5 shares, got %d", tr.Shares())
		}
	})

	t.Run("short increase", func(t *testing.T) {
		tr := NewTracker()
		tr.Sell(5, fixed.FromInt(10), fixed.Zero)
		tr.Sell(5, fixed.FromInt(11), fixed.Zero)

		if !tr.Cost().Eq(fixed.FromInt(105)) {
			t.Errorf("Expected cost 105, got %s", tr.Cost())
		}
	})
}

func TestTracker_Update(t *testing.T) {
	tr := NewTracker()
	tr.Buy(10, fixed.FromInt(10), fixed.FromInt(3))

	tr.Update(fixed.FromInt(15))

	if !tr.Commissions().IsZero() {
		t.Error("Update must reset commissions")
	}
	if !tr.Cost().Eq(fixed.FromInt(150)) {
		t.Errorf("Expected rebased cost 150, got %s", tr.Cost())
	}
	if !tr.NetProfit(fixed.FromInt(15), true).IsZero() {
		t.Errorf("Expected zero profit at the rebase price, got %s", tr.NetProfit(fixed.FromInt(15), true))
	}
	if !tr.NetProfit(fixed.FromInt(16), true).Eq(fixed.FromInt(10)) {
		t.Errorf("Expected profit 10 one point above rebase, got %s", tr.NetProfit(fixed.FromInt(16), true))
	}
}
