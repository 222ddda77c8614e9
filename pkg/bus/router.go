package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jan-sykora/meridian/pkg/common"
)

type event struct {
	id   EventId
	data interface{}
}

// Router is a single-consumer event queue. Producers Post events from the
// dispatch goroutine itself or from outside; Exec and ExecLoop drain the
// queue on one goroutine, so handlers never run concurrently. ExecLoop
// additionally drains every queued event before invoking the step callback
// again, which keeps one step fully settled before the next begins.
type Router struct {
	logger *zap.Logger
	events chan event

	// Handlers
	OnBars          BarsEventHandler
	OnOrderUpdated  OrderUpdatedEventHandler
	OnCash          CashEventHandler
	OnEquity        EquityEventHandler
	OnBarsProcessed BarsProcessedEventHandler

	// Statistics
	runTime       time.Duration
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
	loopCycles    atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	return &Router{
		logger: logger,
		events: make(chan event, eventCapacity),
	}
}

// Post enqueues an event without blocking. Posting to a full queue fails.
func (r *Router) Post(id EventId, data interface{}) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return fmt.Errorf("event capacity reached, dropping %v event", id)
	}
}

// Exec drains the queue until ctx is done. The returned channel yields the
// terminal error, ctx.Err() on cancellation.
func (r *Router) Exec(ctx context.Context) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() {
			r.runTime += time.Since(start)
		}()

		for {
			select {
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatchEvent(ctx, ev)
			}
		}
	}()

	return errChan
}

// ExecLoop interleaves queue draining with a step callback. Queued events
// take priority, doOnceCb runs only when the queue is empty. The loop ends
// when doOnceCb returns an error or ctx is done.
func (r *Router) ExecLoop(ctx context.Context, doOnceCb func(context.Context) error) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() {
			r.runTime += time.Since(start)
		}()

		for {
			select {
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			case ev := <-r.events:
				r.dispatchEvent(ctx, ev)
			default:
				r.loopCycles.Add(1)
				if err := doOnceCb(ctx); err != nil {
					errChan <- err
					return
				}
			}
		}
	}()

	return errChan
}

func (r *Router) dispatchEvent(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)
	if err := r.dispatch(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed",
			zap.Error(err),
			zap.Stringer("event_id", ev.id))
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case BarsEvent:
		bars, ok := ev.data.(common.Bars)
		if !ok {
			return errors.New("invalid type assertion for bars event")
		}
		if r.OnBars != nil {
			r.OnBars(ctx, bars)
		} else {
			r.logger.Debug("bars handler is nil")
		}
	case OrderUpdatedEvent:
		order, ok := ev.data.(*common.Order)
		if !ok {
			return errors.New("invalid type assertion for order updated event")
		}
		if r.OnOrderUpdated != nil {
			r.OnOrderUpdated(ctx, order)
		} else {
			r.logger.Debug("order updated handler is nil")
		}
	case CashEvent:
		cash, ok := ev.data.(common.Cash)
		if !ok {
			return errors.New("invalid type assertion for cash event")
		}
		if r.OnCash != nil {
			r.OnCash(ctx, cash)
		} else {
			r.logger.Debug("cash handler is nil")
		}
	case EquityEvent:
		equity, ok := ev.data.(common.Equity)
		if !ok {
			return errors.New("invalid type assertion for equity event")
		}
		if r.OnEquity != nil {
			r.OnEquity(ctx, equity)
		} else {
			r.logger.Debug("equity handler is nil")
		}
	case BarsProcessedEvent:
		bars, ok := ev.data.(common.Bars)
		if !ok {
			return errors.New("invalid type assertion for bars processed event")
		}
		if r.OnBarsProcessed != nil {
			r.OnBarsProcessed(ctx, bars)
		} else {
			r.logger.Debug("bars processed handler is nil")
		}
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
	return nil
}
