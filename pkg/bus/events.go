package bus

type EventId uint8

const (
	BarsEvent EventId = iota
	OrderUpdatedEvent
	CashEvent
	EquityEvent
	BarsProcessedEvent
)

func (id EventId) String() string {
	switch id {
	case BarsEvent:
		return "bars"
	case OrderUpdatedEvent:
		return "order-updated"
	case CashEvent:
		return "cash"
	case EquityEvent:
		return "equity"
	case BarsProcessedEvent:
		return "bars-processed"
	default:
		return "unknown"
	}
}
