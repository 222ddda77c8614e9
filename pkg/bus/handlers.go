package bus

import (
	"context"

	"github.com/jan-sykora/meridian/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type BarsEventHandler EventHandler[common.Bars]
type OrderUpdatedEventHandler EventHandler[*common.Order]
type CashEventHandler EventHandler[common.Cash]
type EquityEventHandler EventHandler[common.Equity]
type BarsProcessedEventHandler EventHandler[common.Bars]

// MergeHandlers composes handlers into one that invokes them in the order
// given. The ordering is load bearing, callers rely on it to sequence
// settlement before strategy callbacks.
func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
