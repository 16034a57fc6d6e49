package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
	AggregateSupplyRequest OutboxAggregateType = "supply_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryItem,
	AggregateSupplyRequest,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventItemCreated         OutboxEventType = "item_created"
	EventStockReceived       OutboxEventType = "stock_received"
	EventStockIssued         OutboxEventType = "stock_issued"
	EventRequestCreated      OutboxEventType = "request_created"
	EventRequestApproved     OutboxEventType = "request_approved"
	EventRequestUnapproved   OutboxEventType = "request_unapproved"
	EventRequestDispatched   OutboxEventType = "request_dispatched"
	EventRequestCancelled    OutboxEventType = "request_cancelled"
	EventReservationReleased OutboxEventType = "reservation_released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventItemCreated,
	EventStockReceived,
	EventStockIssued,
	EventRequestCreated,
	EventRequestApproved,
	EventRequestUnapproved,
	EventRequestDispatched,
	EventRequestCancelled,
	EventReservationReleased,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
