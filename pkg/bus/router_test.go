package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/common"
)

func TestBusRouter_Post(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	err := r.Post(BarsEvent, common.Bars{})
	if err != nil {
		t.Errorf("Post failed: %v", err)
	}

	if r.postCount.Load() != 1 {
		t.Errorf("Expected postCount=1, got %d", r.postCount.Load())
	}
}

func TestBusRouter_PostCapacityReached(t *testing.T) {
	r := NewRouter(zap.NewNop(), 1)

	err := r.Post(BarsEvent, common.Bars{})
	if err != nil {
		t.Errorf("First Post failed: %v", err)
	}

	err = r.Post(BarsEvent, common.Bars{})
	if err == nil {
		t.Error("Expected error when capacity reached")
	}

	if r.postFails.Load() != 1 {
		t.Errorf("Expected postFails=1, got %d", r.postFails.Load())
	}
}

func TestBusRouter_Exec(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	var barsHandled bool
	r.OnBars = func(ctx context.Context, bars common.Bars) {
		barsHandled = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := r.Exec(ctx)

	if err := r.Post(BarsEvent, common.Bars{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errChan
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	if !barsHandled {
		t.Error("Bars handler not called")
	}

	if r.dispatchCount.Load() != 1 {
		t.Errorf("Expected dispatchCount=1, got %d", r.dispatchCount.Load())
	}
}

func TestBusRouter_ExecLoop(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	var barsHandled bool
	r.OnBars = func(ctx context.Context, bars common.Bars) {
		barsHandled = true
	}

	doOnceCount := 0
	doOnceCb := func(ctx context.Context) error {
		doOnceCount++
		if doOnceCount > 5 {
			return errors.New("done")
		}
		return nil
	}

	if err := r.Post(BarsEvent, common.Bars{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	ctx := context.Background()
	errChan := r.ExecLoop(ctx, doOnceCb)

	err := <-errChan
	if err == nil || err.Error() != "done" {
		t.Errorf("Expected 'done' error, got %v", err)
	}

	if !barsHandled {
		t.Error("Bars handler not called")
	}

	if doOnceCount <= 5 {
		t.Errorf("Expected doOnceCount>5, got %d", doOnceCount)
	}
}

func TestBusRouter_ExecLoopDrainsBeforeStep(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	var order []string
	r.OnBars = func(ctx context.Context, bars common.Bars) {
		order = append(order, "bars")
	}

	doOnceCb := func(ctx context.Context) error {
		order = append(order, "step")
		if len(order) >= 3 {
			return errors.New("done")
		}
		return r.Post(BarsEvent, common.Bars{})
	}

	errChan := r.ExecLoop(context.Background(), doOnceCb)
	<-errChan

	want := []string{"step", "bars", "step"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d entries, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Entry %d: expected %q, got %q", i, want[i], order[i])
		}
	}
}

func TestBusRouter_AllEventTypes(t *testing.T) {
	r := NewRouter(zap.NewNop(), 20)

	handlers := map[EventId]bool{
		BarsEvent:          false,
		OrderUpdatedEvent:  false,
		CashEvent:          false,
		EquityEvent:        false,
		BarsProcessedEvent: false,
	}

	r.OnBars = func(ctx context.Context, bars common.Bars) {
		handlers[BarsEvent] = true
	}
	r.OnOrderUpdated = func(ctx context.Context, order *common.Order) {
		handlers[OrderUpdatedEvent] = true
	}
	r.OnCash = func(ctx context.Context, cash common.Cash) {
		handlers[CashEvent] = true
	}
	r.OnEquity = func(ctx context.Context, equity common.Equity) {
		handlers[EquityEvent] = true
	}
	r.OnBarsProcessed = func(ctx context.Context, bars common.Bars) {
		handlers[BarsProcessedEvent] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)

	if err := r.Post(BarsEvent, common.Bars{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	if err := r.Post(OrderUpdatedEvent, &common.Order{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	if err := r.Post(CashEvent, common.Cash{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	if err := r.Post(EquityEvent, common.Equity{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	if err := r.Post(BarsProcessedEvent, common.Bars{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-errChan

	for eventId, handled := range handlers {
		if !handled {
			t.Errorf("Event %v handler not called", eventId)
		}
	}

	if r.dispatchCount.Load() != 5 {
		t.Errorf("Expected dispatchCount=5, got %d", r.dispatchCount.Load())
	}
}

func TestBusRouter_InvalidTypeAssertion(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	r.OnBars = func(ctx context.Context, bars common.Bars) {
		t.Error("Handler should not be called")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)

	if err := r.Post(BarsEvent, "invalid data type"); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-errChan

	if r.dispatchFails.Load() != 1 {
		t.Errorf("Expected dispatchFails=1, got %d", r.dispatchFails.Load())
	}
}

func TestBusRouter_NilHandlers(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)

	if err := r.Post(BarsEvent, common.Bars{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	if err := r.Post(CashEvent, common.Cash{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-errChan

	if r.dispatchCount.Load() != 2 {
		t.Errorf("Expected dispatchCount=2, got %d", r.dispatchCount.Load())
	}

	if r.dispatchFails.Load() != 0 {
		t.Errorf("Expected dispatchFails=0, got %d", r.dispatchFails.Load())
	}
}

func TestBusRouter_UnsupportedEventId(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)

	if err := r.Post(EventId(99), struct{}{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-errChan

	if r.dispatchFails.Load() != 1 {
		t.Errorf("Expected dispatchFails=1, got %d", r.dispatchFails.Load())
	}
}

func TestBusRouter_ConcurrentPost(t *testing.T) {
	r := NewRouter(zap.NewNop(), 1000)

	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				if err := r.Post(BarsEvent, common.Bars{}); err != nil {
					t.Errorf("Post failed: %v", err)
				}
			}
		}()
	}

	wg.Wait()

	expectedPosts := uint64(numGoroutines * eventsPerGoroutine)
	if r.postCount.Load() != expectedPosts {
		t.Errorf("Expected postCount=%d, got %d", expectedPosts, r.postCount.Load())
	}
}

func TestBusRouter_ContextCancellation(t *testing.T) {
	r := NewRouter(zap.NewNop(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)

	cancel()

	err := <-errChan
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMergeHandlers_Order(t *testing.T) {
	var calls []int
	merged := MergeHandlers[common.Bars](
		func(ctx context.Context, bars common.Bars) { calls = append(calls, 1) },
		func(ctx context.Context, bars common.Bars) { calls = append(calls, 2) },
		func(ctx context.Context, bars common.Bars) { calls = append(calls, 3) },
	)

	merged(context.Background(), common.Bars{})

	if len(calls) != 3 || calls[0] != 1 || calls[1] != 2 || calls[2] != 3 {
		t.Errorf("Expected calls [1 2 3], got %v", calls)
	}
}

func BenchmarkBusRouter_Post(b *testing.B) {
	r := NewRouter(zap.NewNop(), b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Post(BarsEvent, common.Bars{}); err != nil {
			b.Errorf("Post failed: %v", err)
		}
	}
}

func BenchmarkBusRouter_ExecLoop(b *testing.B) {
	r := NewRouter(zap.NewNop(), 1000)

	r.OnBars = func(ctx context.Context, bars common.Bars) {}

	callCount := 0
	doOnceCb := func(ctx context.Context) error {
		callCount++
		if callCount >= b.N {
			return errors.New("done")
		}
		if callCount%100 == 0 {
			if err := r.Post(BarsEvent, common.Bars{}); err != nil {
				return err
			}
		}
		return nil
	}

	ctx := context.Background()

	b.ResetTimer()
	errChan := r.ExecLoop(ctx, doOnceCb)
	<-errChan
}
