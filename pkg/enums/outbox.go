package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateRequest       OutboxAggregateType = "request"
	AggregateBid           OutboxAggregateType = "bid"
	AggregateOrder         OutboxAggregateType = "order"
	AggregatePayment       OutboxAggregateType = "payment"
	AggregatePayout        OutboxAggregateType = "payout"
	AggregateRefundRequest OutboxAggregateType = "refund_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateRequest,
	AggregateBid,
	AggregateOrder,
	AggregatePayment,
	AggregatePayout,
	AggregateRefundRequest,
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
	EventBidPlaced             OutboxEventType = "bid_placed"
	EventBidAccepted           OutboxEventType = "bid_accepted"
	EventOrderCreated          OutboxEventType = "order_created"
	EventPaymentSettled        OutboxEventType = "payment_settled"
	EventExtraPaymentRequested OutboxEventType = "extra_payment_requested"
	EventOrderCompleted        OutboxEventType = "order_completed"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventPayoutReleased        OutboxEventType = "payout_released"
	EventRefundRequested       OutboxEventType = "refund_requested"
	EventRefundDecided         OutboxEventType = "refund_decided"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBidPlaced,
	EventBidAccepted,
	EventOrderCreated,
	EventPaymentSettled,
	EventExtraPaymentRequested,
	EventOrderCompleted,
	EventOrderDelivered,
	EventPayoutReleased,
	EventRefundRequested,
	EventRefundDecided,
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
