package middleware

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/common"
)

func TestPerformance_AccumulatesDurations(t *testing.T) {
	p := NewPerformance(zap.NewNop())

	handler := p.WithBars(func(ctx context.Context, bars common.Bars) {
		time.Sleep(time.Millisecond)
	})

	for i := 0; i < 3; i++ {
		handler(context.Background(), common.Bars{})
	}

	if p.barsCount != 3 {
		t.Errorf("Expected 3 handled events, got %d", p.barsCount)
	}
	if p.totalBarsDur < 3*time.Millisecond {
		t.Errorf("Expected at least 3ms accumulated, got %s", p.totalBarsDur)
	}
}

func TestMonitor_FlagGating(t *testing.T) {
	calls := 0
	m := NewMonitor(zap.NewNop(), MonitorNone)

	handler := m.WithOrderUpdated(func(ctx context.Context, order *common.Order) {
		calls++
	})
	handler(context.Background(), common.NewMarketOrder(common.OrderActionBuy, "TEST", 1, false))

	if calls != 1 {
		t.Errorf("Wrapped handler must always run, got %d calls", calls)
	}
}
