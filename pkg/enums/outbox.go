package enums

import "fmt"

// OutboxAggregateType names the entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// OutboxEventType names the work an outbox row asks the relay to perform.
type OutboxEventType string

const (
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validEventTypes = []OutboxEventType{
	EventNotificationRequested,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// NotificationKind selects the email template sent for an order.
type NotificationKind string

const (
	NotificationOrderConfirmation NotificationKind = "order_confirmation"
	NotificationOrderFailure      NotificationKind = "order_failure"
	NotificationOrderRefund       NotificationKind = "order_refund"
)

// NotificationKindForStatus returns the template for an order status, or
// false when the status does not notify the customer.
func NotificationKindForStatus(status OrderStatus) (NotificationKind, bool) {
	switch status {
	case OrderStatusApproved:
		return NotificationOrderConfirmation, true
	case OrderStatusDeclined, OrderStatusFailed:
		return NotificationOrderFailure, true
	case OrderStatusRefunded:
		return NotificationOrderRefund, true
	}
	return "", false
}
